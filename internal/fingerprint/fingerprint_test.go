package fingerprint_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilerojas/orden-compra-app/internal/entity"
	"github.com/gilerojas/orden-compra-app/internal/fingerprint"
)

func sampleOrder() *entity.OrderRecord {
	return &entity.OrderRecord{
		OrderNumber: "OC-2024-0158",
		OrderDate:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Supplier:    "QUIMICA INDUSTRIAL DEL CARIBE SRL",
		Currency:    "USD",
		Items: []entity.LineItem{
			{
				Description: "Acido citrico anhidro 25kg",
				Quantity:    decimal.RequireFromString("10"),
				UnitPrice:   decimal.RequireFromString("12.50"),
				Subtotal:    decimal.RequireFromString("125.00"),
			},
			{
				Description: "Hidroxido de sodio escamas",
				Quantity:    decimal.RequireFromString("2"),
				UnitPrice:   decimal.RequireFromString("37.75"),
				Subtotal:    decimal.RequireFromString("75.50"),
			},
		},
		Total: decimal.RequireFromString("200.50"),
	}
}

func TestComputeShape(t *testing.T) {
	fp := fingerprint.Compute(sampleOrder())
	assert.Len(t, fp, fingerprint.Size)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]+$`), fp)
}

func TestComputeDeterministic(t *testing.T) {
	assert.Equal(t, fingerprint.Compute(sampleOrder()), fingerprint.Compute(sampleOrder()))
}

func TestComputeIgnoresIncidentalFormatting(t *testing.T) {
	base := fingerprint.Compute(sampleOrder())

	rec := sampleOrder()
	rec.Supplier = "  quimica industrial del caribe srl "
	assert.Equal(t, base, fingerprint.Compute(rec), "supplier case and padding are not content")

	rec = sampleOrder()
	rec.Total = decimal.RequireFromString("200.5000")
	assert.Equal(t, base, fingerprint.Compute(rec), "decimal scale is not content")
}

func TestComputeDetectsModification(t *testing.T) {
	base := fingerprint.Compute(sampleOrder())

	rec := sampleOrder()
	rec.Items[0].Quantity = decimal.RequireFromString("11")
	assert.NotEqual(t, base, fingerprint.Compute(rec), "quantity change")

	rec = sampleOrder()
	rec.Items[1].UnitPrice = decimal.RequireFromString("37.76")
	assert.NotEqual(t, base, fingerprint.Compute(rec), "price change")

	rec = sampleOrder()
	rec.Items[0].Description = "Acido citrico monohidrato 25kg"
	assert.NotEqual(t, base, fingerprint.Compute(rec), "description change")

	rec = sampleOrder()
	rec.Total = decimal.RequireFromString("210.50")
	assert.NotEqual(t, base, fingerprint.Compute(rec), "total change")

	rec = sampleOrder()
	rec.OrderDate = rec.OrderDate.AddDate(0, 0, 1)
	assert.NotEqual(t, base, fingerprint.Compute(rec), "date change")
}

func TestComputeItemOrderMatters(t *testing.T) {
	rec := sampleOrder()
	rec.Items[0], rec.Items[1] = rec.Items[1], rec.Items[0]
	require.NotEqual(t, fingerprint.Compute(sampleOrder()), fingerprint.Compute(rec))
}
