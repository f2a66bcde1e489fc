package refera

import "embed"

// EmailFS holds the HTML and plaintext email templates shipped with the
// binary. Each template group is a directory under templates/emails
// containing html.tmpl and plaintext.tmpl.
//
//go:embed templates/emails
var EmailFS embed.FS
