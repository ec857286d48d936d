package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFAQ(t *testing.T) {
	kb := Default()

	tests := []struct {
		query    string
		wantOK   bool
		contains string
	}{
		{ShippingPolicyKey, true, "표준 배송"},
		{"배송 정책 알려주세요", true, "표준 배송"},
		{"고객센터 운영시간이 궁금해요", true, "평일 오전 9시"},
		{"반품하고 싶어요", true, "7일 이내"},
		{"오늘 날씨", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			answer, ok := kb.FAQ(tt.query)
			assert.Equal(t, tt.wantOK, ok)
			assert.Contains(t, answer, tt.contains)
		})
	}
}

func TestProductInfo(t *testing.T) {
	kb := Default()

	info, ok := kb.ProductInfo("스마트폰")
	assert.True(t, ok)
	assert.Contains(t, info, "999,000원")
	assert.Contains(t, info, "A2A 스마트폰 Pro")

	_, ok = kb.ProductInfo("냉장고")
	assert.False(t, ok)
}

func TestMatchProduct(t *testing.T) {
	kb := Default()

	key, ok := kb.MatchProduct("스마트폰 제품 가격 알려줘", "스마트폰", "노트북")
	assert.True(t, ok)
	assert.Equal(t, "스마트폰", key)

	_, ok = kb.MatchProduct("태블릿 가격", "스마트폰", "노트북")
	assert.False(t, ok)

	_, ok = (&Base{}).MatchProduct("스마트폰")
	assert.False(t, ok)
}
