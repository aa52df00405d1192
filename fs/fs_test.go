package appfs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFS(t *testing.T) {
	for _, name := range []string{
		"migrations/00001_create_users.sql",
		"seed/verses.yaml",
		"seed/common-passwords.txt",
		"templates/email/_base.txt",
		"templates/email/_base.gohtml",
		"templates/email/welcome.gohtml",
		"templates/site/_layout.gohtml",
		"templates/site/home.gohtml",
	} {
		_, err := fs.Stat(FS, name)
		assert.NoError(t, err, name)
	}
}
