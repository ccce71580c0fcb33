package notification

import (
	"bytes"
	"html/template"
)

// SubjectPrefix is prepended to every outgoing alert subject.
const SubjectPrefix = "[ntfy-go] "

// emailTmpl is the HTML wrapper applied to every outgoing alert.
// {{.Subject}} and {{.Body}} are auto-escaped by html/template.
var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:24px;background-color:#f4f4f5;
     font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;">
  <table width="600" cellpadding="0" cellspacing="0" role="presentation"
         style="max-width:600px;width:100%;margin:0 auto;">
    <tr>
      <td style="background-color:#317f6f;padding:16px 32px;border-radius:8px 8px 0 0;">
        <p style="margin:0;font-size:15px;font-weight:600;color:#ffffff;">{{.Subject}}</p>
      </td>
    </tr>
    <tr>
      <td style="background-color:#ffffff;padding:24px 32px;border-radius:0 0 8px 8px;">
        <div style="font-size:14px;line-height:1.7;color:#374151;
                    white-space:pre-wrap;word-break:break-word;">{{.Body}}</div>
      </td>
    </tr>
  </table>
</body>
</html>
`))

// buildSubject prepends the standard prefix to a subject line.
func buildSubject(subject string) string {
	return SubjectPrefix + subject
}

// buildEmailHTML renders the HTML email template with the given subject and body.
func buildEmailHTML(subject, body string) (string, error) {
	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, struct{ Subject, Body string }{subject, body})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
