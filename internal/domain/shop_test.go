package domain

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestShopRecordLogOmitsToken(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	rec := &ShopRecord{ShopDomain: "mystore.myshopify.com", AccessToken: "shpat_secret", Scope: "read_orders", ConnectedAt: testNow}

	logger.Info().Object("record", rec).Msg("saved")

	assert.Contains(t, buf.String(), "mystore.myshopify.com")
	assert.NotContains(t, buf.String(), "shpat_secret")
}

func TestShopRecordClone(t *testing.T) {
	rec := &ShopRecord{ShopDomain: "a.myshopify.com", AccessToken: "t"}
	c := rec.Clone()
	c.AccessToken = "changed"
	assert.Equal(t, "t", rec.AccessToken)

	var nilRec *ShopRecord
	assert.Nil(t, nilRec.Clone())
}
