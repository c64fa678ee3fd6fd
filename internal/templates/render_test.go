package templates

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	body := `<p>{{.TenantName}} rents {{.FlatNo}} for {{.RentAmount}} starting {{.StartDate}}</p>`
	html, err := Render(body, RenderData{
		TenantName: "Jane Tenant",
		FlatNo:     "B-404",
		RentAmount: FormatAmount(25000),
		StartDate:  FormatDate(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Jane Tenant")
	assert.Contains(t, html, "25,000")
	assert.Contains(t, html, "01 Mar 2026")
}

func TestRenderEscapesHTMLInValues(t *testing.T) {
	html, err := Render(`<p>{{.TenantName}}</p>`, RenderData{TenantName: `<script>alert(1)</script>`})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestRenderRejectsBadTemplate(t *testing.T) {
	_, err := Render(`{{.Tenant`, RenderData{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse template"))
}

func TestFormatAmountGroupsThousands(t *testing.T) {
	assert.Equal(t, "1,250,000", FormatAmount(1250000))
	assert.Equal(t, "0", FormatAmount(0))
}

func TestSampleDataRendersDefaultBody(t *testing.T) {
	html, err := Render(`{{.Number}} {{.SocietyName}} {{.DepositAmount}}`, SampleData())
	require.NoError(t, err)
	assert.Contains(t, html, "AGR-SAMPLE-0001")
	assert.Contains(t, html, "100,000")
}
