package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farelens/deals-cli/internal/model"
)

func TestNormalizeRecord_AliasFallback(t *testing.T) {
	rec := model.RawRecord{
		"name":             "Bali Escape",
		"link":             "https://agency.test/bali",
		"vendor":           "agencyA",
		"duration_nights":  float64(5),
		"price_per_person": float64(999),
	}
	d, ok := NormalizeRecord(rec)
	require.True(t, ok)
	assert.Equal(t, "Bali Escape", d.Title)
	assert.Equal(t, "https://agency.test/bali", d.URL)
	assert.Equal(t, "agencyA", d.Source)
	require.NotNil(t, d.Nights)
	assert.Equal(t, 5, *d.Nights)
	require.NotNil(t, d.PPPrice)
	assert.Equal(t, 999.0, *d.PPPrice)
}

func TestNormalizeRecord_PackageTotalDerived(t *testing.T) {
	d, ok := NormalizeRecord(model.RawRecord{
		"title": "x", "url": "https://a.test/x", "price": float64(750.5),
	})
	require.True(t, ok)
	require.NotNil(t, d.PackageTotalForTwo)
	assert.Equal(t, 1501.0, *d.PackageTotalForTwo)

	d, ok = NormalizeRecord(model.RawRecord{"title": "x", "url": "https://a.test/x"})
	require.True(t, ok)
	assert.Nil(t, d.PPPrice)
	assert.Nil(t, d.PackageTotalForTwo)
}

func TestNormalizeRecord_MissingTitleOrURL(t *testing.T) {
	_, ok := NormalizeRecord(model.RawRecord{"url": "https://a.test/x"})
	assert.False(t, ok)
	_, ok = NormalizeRecord(model.RawRecord{"title": "x"})
	assert.False(t, ok)
	_, ok = NormalizeRecord(model.RawRecord{"title": "  ", "url": "https://a.test/x"})
	assert.False(t, ok)
}

func TestNormalizeRecord_LongDurationExcluded(t *testing.T) {
	_, ok := NormalizeRecord(model.RawRecord{
		"title": "Round the world", "url": "https://a.test/rtw", "nights": float64(30),
	})
	assert.False(t, ok)

	// 21 nights exactly is still allowed.
	d, ok := NormalizeRecord(model.RawRecord{
		"title": "Grand tour", "url": "https://a.test/gt", "nights": float64(21),
	})
	require.True(t, ok)
	assert.Equal(t, 21, *d.Nights)
}

func TestNormalizeRecord_PriceCoercion(t *testing.T) {
	cases := map[string]any{
		"$1,299":     float64(1299),
		"1299.50":    float64(1299.5),
		"AUD 2,049":  float64(2049),
		"from £899":  float64(899),
		"1,000,000":  float64(1000000),
	}
	for in, want := range cases {
		d, ok := NormalizeRecord(model.RawRecord{"title": "x", "url": "https://a.test/x", "price": in})
		require.True(t, ok, in)
		require.NotNil(t, d.PPPrice, in)
		assert.Equal(t, want, *d.PPPrice, in)
	}

	// Unparsable price fails soft, not hard.
	d, ok := NormalizeRecord(model.RawRecord{"title": "x", "url": "https://a.test/x", "price": "call us"})
	require.True(t, ok)
	assert.Nil(t, d.PPPrice)
}

func TestNormalizeRecord_NightsFromText(t *testing.T) {
	d, ok := NormalizeRecord(model.RawRecord{
		"title": "x", "url": "https://a.test/x", "duration": "7 nights",
	})
	require.True(t, ok)
	require.NotNil(t, d.Nights)
	assert.Equal(t, 7, *d.Nights)
}

func TestNormalizeRecord_Destinations(t *testing.T) {
	d, ok := NormalizeRecord(model.RawRecord{
		"title": "x", "url": "https://a.test/x",
		"destinations": []any{"Bali", "Lombok"},
	})
	require.True(t, ok)
	assert.Equal(t, []string{"Bali", "Lombok"}, d.Destinations)

	d, ok = NormalizeRecord(model.RawRecord{
		"title": "x", "url": "https://a.test/x", "destination": "Fiji, Vanuatu",
	})
	require.True(t, ok)
	assert.Equal(t, []string{"Fiji", "Vanuatu"}, d.Destinations)
}

func TestNormalizeRecord_IDFallback(t *testing.T) {
	d, _ := NormalizeRecord(model.RawRecord{"deal_id": "d-9", "title": "x", "url": "https://a.test/x"})
	assert.Equal(t, "d-9", d.ID)

	d, _ = NormalizeRecord(model.RawRecord{"title": "x", "url": "https://a.test/x"})
	assert.Equal(t, "x", d.ID)
}

func TestNormalize_Idempotent(t *testing.T) {
	d, ok := NormalizeRecord(model.RawRecord{
		"headline": "Fiji 7 nights with flights",
		"href":     "https://a.test/fiji?utm=x",
		"site":     "agencyB",
		"nights":   float64(7),
		"price_pp": "$1,499",
	})
	require.True(t, ok)

	// Round-trip the normalized deal through JSON back into a raw record.
	buf, err := json.Marshal(d)
	require.NoError(t, err)
	var again model.RawRecord
	require.NoError(t, json.Unmarshal(buf, &again))

	d2, ok := NormalizeRecord(again)
	require.True(t, ok)
	assert.Equal(t, d.ID, d2.ID)
	assert.Equal(t, d.Title, d2.Title)
	assert.Equal(t, d.URL, d2.URL)
	assert.Equal(t, d.Source, d2.Source)
	assert.Equal(t, *d.Nights, *d2.Nights)
	assert.Equal(t, *d.PPPrice, *d2.PPPrice)
	assert.Equal(t, *d.PackageTotalForTwo, *d2.PackageTotalForTwo)
}

func TestNormalizeAll_DropsBadRecords(t *testing.T) {
	deals := NormalizeAll([]model.RawRecord{
		{"title": "a", "url": "https://a.test/1"},
		{"title": "no url"},
		{"title": "too long", "url": "https://a.test/2", "nights": float64(22)},
		{"title": "b", "url": "https://a.test/3", "nights": float64(3)},
	})
	require.Len(t, deals, 2)
	assert.Equal(t, "a", deals[0].Title)
	assert.Equal(t, "b", deals[1].Title)
}
