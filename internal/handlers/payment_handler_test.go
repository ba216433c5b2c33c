package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReturnTarget(t *testing.T) {
	h := NewPaymentHandler(nil, []string{" Shop.Example.com ", ""})

	tests := []struct {
		raw  string
		want bool
	}{
		{"https://shop.example.com/done", true},
		{"http://SHOP.example.com:8443/done?x=1", true},
		{"/checkout/thanks", true},
		{"https://evil.example.net/done", false},
		{"https://shop.example.com.evil.net/", false},
		{"//evil.example.net/done", false},
		{"/\\evil.example.net", false},
		{"javascript:alert(1)", false},
		{"https://user@shop.example.com/", false},
		{"thanks", false},
		{"%zz", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, ok := h.returnTarget(tt.raw)
			assert.Equal(t, tt.want, ok)
		})
	}
}
