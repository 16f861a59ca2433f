package contract

import (
	"strings"
	"testing"
	"time"

	"bontroc_backend/internal/listing"
	"bontroc_backend/internal/proposal"
	"bontroc_backend/internal/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProposal() *proposal.Proposal {
	date := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	p := &proposal.Proposal{
		ListingID:      uuid.New(),
		Listing:        &listing.Listing{Title: "Guitar lessons"},
		FromUser:       &user.User{DisplayName: "Alice"},
		ToUser:         &user.User{DisplayName: "Bob"},
		OfferedListing: &listing.Listing{Title: "French *conversation*"},
		OfferedValue:   decimal.NewNullDecimal(decimal.RequireFromString("45.5")),
		ProposedDate:   &date,
		Message:        "See you\nat the   studio <b>soon</b>",
		Status:         proposal.StatusAccepted,
	}
	p.ID = uuid.New()
	return p
}

func TestRenderTerms(t *testing.T) {
	p := sampleProposal()
	md, err := RenderTerms(p, "BT-TESTREF1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, md, "**Offering party:** Alice")
	assert.Contains(t, md, "**Receiving party:** Bob")
	assert.Contains(t, md, `requests "Guitar lessons"`)
	assert.Contains(t, md, `provides "French \*conversation\*"`)
	assert.Contains(t, md, "estimate the exchange at 45.50")
	assert.Contains(t, md, "planned for 14 March 2026")
	assert.Contains(t, md, "**Date:** 1 March 2026")
	assert.Contains(t, md, "> See you at the studio &lt;b&gt;soon&lt;/b&gt;")
	assert.Contains(t, md, "**Reference:** BT-TESTREF1")
}

func TestRenderTerms_OptionalSections(t *testing.T) {
	p := sampleProposal()
	p.OfferedListing = nil
	p.OfferedValue = decimal.NullDecimal{}
	p.ProposedDate = nil
	p.FromUser = nil

	md, err := RenderTerms(p, "BT-TESTREF2", time.Now())
	require.NoError(t, err)
	assert.NotContains(t, md, "In exchange")
	assert.NotContains(t, md, "estimate the exchange")
	assert.NotContains(t, md, "planned for")
	assert.Contains(t, md, "Unknown member")
}

func TestRenderDocument(t *testing.T) {
	md, err := RenderTerms(sampleProposal(), "BT-TESTREF3", time.Now())
	require.NoError(t, err)

	doc, err := RenderDocument("Barter <agreement>", md)
	require.NoError(t, err)
	html := string(doc)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>Barter &lt;agreement&gt;</title>")
	assert.Contains(t, html, "<h1>Barter agreement</h1>")
	assert.Contains(t, html, "<ol>")
	assert.NotContains(t, html, "<b>soon</b>", "user text never becomes markup")
}
