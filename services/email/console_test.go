package emailsvc

import (
	"bytes"
	"net/mail"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/japhetcordova/clc-sub000/core"
	appfs "github.com/japhetcordova/clc-sub000/fs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testLogger struct{ t *testing.T }

func (l testLogger) Debug(msg string, args ...interface{}) {}
func (l testLogger) Info(msg string, args ...interface{})  {}
func (l testLogger) Warn(msg string, args ...interface{})  {}
func (l testLogger) Error(msg string, args ...interface{}) {
	l.t.Log(append([]interface{}{msg}, args...)...)
}
func (l testLogger) Fatal(msg string, args ...interface{}) {
	l.t.Fatal(append([]interface{}{msg}, args...)...)
}

func setup(t *testing.T) (*core.Config, core.Logger) {
	t.Helper()
	conf := core.NewTestConfig()
	logger := testLogger{t}
	core.ParseEmailTemplates(appfs.FS, conf, logger)
	return conf, logger
}

func TestConsoleService(t *testing.T) {
	conf, logger := setup(t)
	out := new(syncBuffer)
	svc := newConsoleService(conf, logger, out)

	welcome := &core.EmailMessage{
		To:           []mail.Address{{Name: "Juan", Address: "juan@clc.test"}},
		Subject:      "Welcome",
		TemplateName: "welcome",
		TemplateData: map[string]string{"FirstName": "Juan", "Code": "ABCD2345", "Payload": "CLC1:x:y"},
	}
	require.NoError(t, welcome.Attach(strings.NewReader("\x89PNG\r\n\x1a\n"), "card.png"))
	noRecipient := &core.EmailMessage{Subject: "Lost", BodyStr: "nobody reads this"}

	svc.SendMessages(welcome, noRecipient)
	svc.Wait()

	doc := out.String()
	assert.Contains(t, doc, "To: \"Juan\" <juan@clc.test>")
	assert.Contains(t, doc, "Subject: [CLC] Welcome")
	assert.Contains(t, doc, "Your member code is ABCD2345")
	assert.Contains(t, doc, "/id/CLC1:x:y")
	assert.Contains(t, doc, "Content-Type: image/png")
	assert.Contains(t, doc, `filename="card.png"`)
	assert.NotContains(t, doc, "nobody reads this")
}

func TestConsoleServiceMock(t *testing.T) {
	conf, logger := setup(t)
	svc := NewConsoleServiceMock(conf, logger)

	replyTo := mail.Address{Address: "visitor@clc.test"}
	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{conf.OfficeEmail},
			ReplyTo:      &replyTo,
			Subject:      "Contact",
			TemplateName: "contact",
			TemplateData: map[string]string{"Name": "Visitor", "Email": replyTo.Address, "Phone": "", "Message": "Hello!"},
		},
		&core.EmailMessage{To: []mail.Address{{Address: "x@clc.test"}}, TemplateName: "unknown"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1) // the unknown template renders no content
	assert.Contains(t, sent[0].TextContent, "Hello!")
	assert.Contains(t, sent[0].HTMLContent, "Hello!")

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}
