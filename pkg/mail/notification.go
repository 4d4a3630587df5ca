package mail

import (
	"fmt"
	"html"
)

// ProcessingCompleteSubject is the subject line for completion notifications.
const ProcessingCompleteSubject = "Your document summary is ready"

// ProcessingCompleteBody renders the HTML body for a processing-complete
// notification. User-supplied values are escaped before interpolation.
func ProcessingCompleteBody(username, filename, summary string) string {
	return fmt.Sprintf(`<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <h2>Hello %s!</h2>
      <p>Your document summary is ready.</p>
      <div style="background: #f5f5f5; padding: 20px; border-radius: 8px;">
        <h3>File: %s</h3>
        <p>%s</p>
      </div>
      <p style="margin-top: 30px; font-size: 12px; color: #666;">
        This is an automated email. Please do not reply.
      </p>
    </div>
  </body>
</html>`,
		html.EscapeString(username),
		html.EscapeString(filename),
		html.EscapeString(summary))
}
