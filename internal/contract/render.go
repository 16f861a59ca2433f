package contract

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"text/template"
	"time"

	"bontroc_backend/internal/proposal"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const termsTemplate = `# Barter agreement

**Reference:** {{.Reference}}
**Date:** {{.Date}}

## Parties

- **Offering party:** {{.From}}
- **Receiving party:** {{.To}}

## Subject

The offering party requests "{{.Listing}}" from the receiving party.
{{- if .OfferedListing}}
In exchange, the offering party provides "{{.OfferedListing}}".
{{- end}}
{{- if .OfferedValue}}
Both parties estimate the exchange at {{.OfferedValue}}.
{{- end}}
{{- if .ProposedDate}}
The exchange is planned for {{.ProposedDate}}.
{{- end}}

## Agreed message

> {{.Message}}

## Terms

1. Each party delivers what is described above in good faith.
2. No money changes hands through the platform.
3. The exchange is complete once the party who did not mark it as delivered confirms it.
4. Either party may open a dispute with the moderation team until the exchange is confirmed.

This agreement takes effect once both parties have accepted it in the application.
`

var (
	terms    = template.Must(template.New("terms").Parse(termsTemplate))
	markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
)

type termsData struct {
	Reference      string
	Date           string
	From           string
	To             string
	Listing        string
	OfferedListing string
	OfferedValue   string
	ProposedDate   string
	Message        string
}

func displayName(p *proposal.Proposal, from bool) string {
	u := p.ToUser
	if from {
		u = p.FromUser
	}
	if u == nil {
		return "Unknown member"
	}
	return u.DisplayName
}

// escapeMarkdown keeps user text from being read as markup.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer("\\", "\\\\", "*", "\\*", "_", "\\_", "`", "\\`", "#", "\\#", "[", "\\[", "]", "\\]", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(strings.Join(strings.Fields(s), " "))
}

// RenderTerms writes the markdown terms of the proposal's contract.
func RenderTerms(p *proposal.Proposal, reference string, now time.Time) (string, error) {
	data := termsData{
		Reference: reference,
		Date:      now.Format("2 January 2006"),
		From:      escapeMarkdown(displayName(p, true)),
		To:        escapeMarkdown(displayName(p, false)),
		Message:   escapeMarkdown(p.Message),
	}
	if p.Listing != nil {
		data.Listing = escapeMarkdown(p.Listing.Title)
	}
	if p.OfferedListing != nil {
		data.OfferedListing = escapeMarkdown(p.OfferedListing.Title)
	}
	if p.OfferedValue.Valid {
		data.OfferedValue = p.OfferedValue.Decimal.StringFixed(2)
	}
	if p.ProposedDate != nil {
		data.ProposedDate = p.ProposedDate.UTC().Format("2 January 2006")
	}

	var buf bytes.Buffer
	if err := terms.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render contract terms: %w", err)
	}
	return buf.String(), nil
}

// RenderDocument converts markdown terms into a standalone HTML page.
func RenderDocument(title, termsMarkdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(termsMarkdown), &body); err != nil {
		return nil, fmt.Errorf("convert contract markdown: %w", err)
	}
	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>")
	doc.WriteString(html.EscapeString(title))
	doc.WriteString("</title>\n</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.Bytes(), nil
}
