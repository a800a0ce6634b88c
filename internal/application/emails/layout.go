package emails

import (
	"fmt"
	"strings"
	"time"
)

const (
	themePrimary   = "#1F4E5F"
	themeTextMuted = "#6B7280"
	themeBgBody    = "#F3F4F6"
)

// EmailLayout wraps content in the shared transactional layout.
func EmailLayout(contentHTML string) string {
	year := time.Now().Year()
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <style>
    body { margin: 0; padding: 0; background-color: %s; font-family: -apple-system, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; }
    .content-body p { font-size: 16px; line-height: 1.6; color: #374151; }
    .button { display: inline-block; background-color: %s; color: #ffffff !important; padding: 12px 32px; border-radius: 6px; text-decoration: none; }
    .footer-text { color: %s; font-size: 13px; }
  </style>
</head>
<body>
  <table role="presentation" width="100%%" cellpadding="0" cellspacing="0">
    <tr><td class="content-body" style="padding: 32px 48px;">%s</td></tr>
    <tr><td class="footer-text" style="padding: 0 48px 32px 48px;">&copy; %d Showroom</td></tr>
  </table>
</body>
</html>`, themeBgBody, themePrimary, themeTextMuted, contentHTML, year)
}

// EscapeHTML escapes the characters that matter inside element content and attributes.
func EscapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;")
	return r.Replace(s)
}
