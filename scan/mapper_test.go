package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manojoshi/querykit/schema"
)

type shipment struct {
	ID      string     `querykit:"@shipment_id,PK"`
	Carrier string     `querykit:"@carrier"`
	Weight  float32    `querykit:"@weight"`
	Boxes   uint16     `querykit:"@boxes"`
	Level   int8       `querykit:"@level"`
	Fragile bool       `querykit:"@fragile"`
	Sent    time.Time  `querykit:"@sent_at"`
	Landed  *time.Time `querykit:"@landed_at"`
	Note    *string    `querykit:"@note"`
}

func shipmentEntity(t *testing.T) *schema.Entity {
	t.Helper()
	e, err := schema.Of[shipment](schema.NewRegistry())
	require.NoError(t, err)
	return e
}

func TestEncodeDecodeHash(t *testing.T) {
	e := shipmentEntity(t)
	sent := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	in := shipment{ID: "s-1", Carrier: " DHL ", Weight: 2.5, Boxes: 3, Level: -2, Fragile: true, Sent: sent}

	kv := Encode(e, in)
	assert.Equal(t, map[string]any{
		"shipment_id": "s-1",
		"carrier":     " DHL ",
		"weight":      "2.5",
		"boxes":       "3",
		"level":       "-2",
		"fragile":     "1",
		"sent_at":     "1704164645006",
	}, kv, "nil pointers are not written")

	str := make(map[string]string, len(kv))
	for k, v := range kv {
		str[k] = v.(string)
	}
	out, err := Decode[shipment](e, str)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	ptr, err := Decode[*shipment](e, map[string]string{"note": "hi", "landed_at": "0", "unknown": "x"})
	require.NoError(t, err)
	require.NotNil(t, ptr.Note)
	assert.Equal(t, "hi", *ptr.Note)
	require.NotNil(t, ptr.Landed)
	assert.True(t, ptr.Landed.Equal(time.UnixMilli(0)))
}

func TestDecodeErrors(t *testing.T) {
	e := shipmentEntity(t)

	_, err := Decode[shipment](e, map[string]string{"boxes": "-1"})
	assert.ErrorContains(t, err, "boxes")

	_, err = Decode[shipment](e, map[string]string{"level": "300"})
	assert.ErrorContains(t, err, "overflows")

	_, err = Decode[shipment](e, map[string]string{"sent_at": "yesterday"})
	assert.Error(t, err)
}

func TestDecodeSearchRESP2(t *testing.T) {
	e := shipmentEntity(t)
	reply := []interface{}{
		int64(14),
		"shipment:a", []interface{}{"shipment_id", "a", "boxes", "2"},
		"shipment:b", []interface{}{"shipment_id", "b", "fragile", "1"},
	}

	rows, total, err := DecodeSearch[shipment](e, reply)
	require.NoError(t, err)
	assert.Equal(t, 14, total)
	require.Len(t, rows, 2)
	assert.Equal(t, uint16(2), rows[0].Boxes)
	assert.True(t, rows[1].Fragile)

	n, err := Total([]interface{}{int64(14), "shipment:a"})
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	_, _, err = DecodeSearch[shipment](e, []interface{}{int64(1), "shipment:a"})
	assert.Error(t, err)
}

func TestDecodeSearchRESP3(t *testing.T) {
	e := shipmentEntity(t)
	reply := map[interface{}]interface{}{
		"total_results": int64(9),
		"results": []interface{}{
			map[interface{}]interface{}{
				"id":               "shipment:a",
				"extra_attributes": map[interface{}]interface{}{"shipment_id": "a", "weight": "1.25"},
			},
		},
	}

	rows, total, err := DecodeSearch[*shipment](e, reply)
	require.NoError(t, err)
	assert.Equal(t, 9, total)
	require.Len(t, rows, 1)
	assert.Equal(t, float32(1.25), rows[0].Weight)

	n, err := Total(map[string]interface{}{"total_results": int64(9), "results": []interface{}{}})
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	_, err = Total("OK")
	assert.Error(t, err)
}
