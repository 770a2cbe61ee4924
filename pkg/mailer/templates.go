package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/mail"
	texttemplate "text/template"
)

// Template names understood by Render.
const (
	TemplateOTP                 = "otp"
	TemplatePasswordReset       = "password_reset"
	TemplatePasswordUpdated     = "password_updated"
	TemplateEnrollmentConfirmed = "enrollment_confirmed"
)

type templateSpec struct {
	subject string
	text    string
	html    string
}

var templateSpecs = map[string]templateSpec{
	TemplateOTP: {
		subject: "Your verification code",
		text:    "Hi,\n\nYour verification code is {{.OTP}}. It expires in {{.ValidFor}}.\n",
		html:    `<p>Hi,</p><p>Your verification code is <strong>{{.OTP}}</strong>. It expires in {{.ValidFor}}.</p>`,
	},
	TemplatePasswordReset: {
		subject: "Reset your password",
		text:    "Hi {{.Name}},\n\nUse the link below to choose a new password. It expires in {{.ValidFor}}.\n{{.Link}}\n",
		html:    `<p>Hi {{.Name}},</p><p>Use the link below to choose a new password. It expires in {{.ValidFor}}.</p><p><a href="{{.Link}}">{{.Link}}</a></p>`,
	},
	TemplatePasswordUpdated: {
		subject: "Your password was updated",
		text:    "Hi {{.Name}},\n\nThe password for {{.Email}} was changed. If this was not you, reset it immediately.\n",
		html:    `<p>Hi {{.Name}},</p><p>The password for {{.Email}} was changed. If this was not you, reset it immediately.</p>`,
	},
	TemplateEnrollmentConfirmed: {
		subject: "You are enrolled in {{.CourseName}}",
		text:    "Hi {{.Name}},\n\nYour enrollment in {{.CourseName}} is confirmed. Start learning at {{.Link}}\n",
		html:    `<p>Hi {{.Name}},</p><p>Your enrollment in <strong>{{.CourseName}}</strong> is confirmed.</p><p><a href="{{.Link}}">Start learning</a></p>`,
	},
}

type compiledTemplate struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

var compiled = mustCompile()

func mustCompile() map[string]compiledTemplate {
	out := make(map[string]compiledTemplate, len(templateSpecs))
	for name, spec := range templateSpecs {
		out[name] = compiledTemplate{
			subject: texttemplate.Must(texttemplate.New(name + "_subject").Parse(spec.subject)),
			text:    texttemplate.Must(texttemplate.New(name + "_text").Parse(spec.text)),
			html:    htmltemplate.Must(htmltemplate.New(name + "_html").Parse(spec.html)),
		}
	}
	return out
}

// Render builds a message for the named template. HTML output is escaped by html/template.
func Render(name string, to mail.Address, data interface{}) (Message, error) {
	tmpl, ok := compiled[name]
	if !ok {
		return Message{}, fmt.Errorf("mailer: unknown template %q", name)
	}
	var subject, text, html bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := tmpl.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := tmpl.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	return Message{To: to, Subject: subject.String(), Text: text.String(), HTML: html.String()}, nil
}
