package email

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewSender_FallsBackToLog(t *testing.T) {
	_, ok := NewSender(SMTPConfig{}, zerolog.Nop()).(*LogSender)
	assert.True(t, ok)

	_, ok = NewSender(SMTPConfig{Host: "smtp.test", Port: 587, From: "noreply@bearshare.test"}, zerolog.Nop()).(*SMTPSender)
	assert.True(t, ok)

	assert.NoError(t, NewLogSender(zerolog.Nop()).Send(context.Background(), "a@b.c", "s", "<p>x</p>"))
}

func TestCourseRequestHTML_Escapes(t *testing.T) {
	body := CourseRequestHTML("Org <Chem>", "CHEM 201", "", "http://localhost/admin")
	assert.Contains(t, body, "Org &lt;Chem&gt;")
	assert.Contains(t, body, "CHEM 201")
	assert.Contains(t, body, "no description")
}
