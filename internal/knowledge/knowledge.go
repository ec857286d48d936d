// Package knowledge holds the support desk's canned answers: an FAQ and a
// short product summary per product line.
package knowledge

import (
	"fmt"
	"strings"
)

// ShippingPolicyKey is the FAQ entry used for shipping policy questions.
const ShippingPolicyKey = "배송정책"

// FAQEntry is one canned answer and the keywords that select it.
type FAQEntry struct {
	Key      string
	Keywords []string
	Answer   string
}

// Product is the summary the front desk can give without delegation.
type Product struct {
	Key         string
	Name        string
	Price       string
	Description string
}

// Base is a read-only knowledge base. The zero value is empty; use Default
// for the built-in data.
type Base struct {
	faq      []FAQEntry
	products map[string]Product
}

// New builds a knowledge base from explicit data.
func New(faq []FAQEntry, products []Product) *Base {
	b := &Base{faq: faq, products: make(map[string]Product, len(products))}
	for _, p := range products {
		b.products[p.Key] = p
	}
	return b
}

// Default returns the built-in FAQ and product catalogue.
func Default() *Base {
	return New(defaultFAQ, defaultProducts)
}

// FAQ returns the answer whose key or keywords appear in query.
func (b *Base) FAQ(query string) (string, bool) {
	q := normalize(query)
	for _, e := range b.faq {
		if strings.Contains(q, normalize(e.Key)) {
			return e.Answer, true
		}
	}
	for _, e := range b.faq {
		for _, kw := range e.Keywords {
			if strings.Contains(q, normalize(kw)) {
				return e.Answer, true
			}
		}
	}
	return "", false
}

// ProductInfo returns a formatted summary for a product key such as "스마트폰".
func (b *Base) ProductInfo(key string) (string, bool) {
	p, ok := b.products[key]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s 정보:\n제품명: %s\n가격: %s\n설명: %s", p.Key, p.Name, p.Price, p.Description), true
}

// MatchProduct returns the first known product key mentioned in query,
// considering only the given candidates.
func (b *Base) MatchProduct(query string, candidates ...string) (string, bool) {
	for _, key := range candidates {
		if _, ok := b.products[key]; ok && strings.Contains(query, key) {
			return key, true
		}
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

var defaultFAQ = []FAQEntry{
	{
		Key:      ShippingPolicyKey,
		Keywords: []string{"배송비", "배송기간", "배송 기간"},
		Answer: "배송 정책 안내: 표준 배송은 3,000원으로 2-3일 소요되며, 빠른 배송은 6,000원으로 다음날 도착합니다. " +
			"당일 배송(10,000원)은 서울 및 수도권 지역에 한해 오전 11시 이전 주문 시 가능합니다. 50,000원 이상 구매 시 표준 배송은 무료입니다.",
	},
	{
		Key:      "반품정책",
		Keywords: []string{"반품", "교환"},
		Answer:   "제품 수령 후 7일 이내에 미개봉 상태인 경우 반품 및 교환이 가능합니다. 제품 하자의 경우 14일 이내에 무상으로 교환해 드립니다.",
	},
	{
		Key:      "영업시간",
		Keywords: []string{"상담시간", "운영시간", "고객센터"},
		Answer:   "고객센터(1234-5678)는 평일 오전 9시부터 오후 6시까지 운영합니다. 주말 및 공휴일은 휴무입니다.",
	},
	{
		Key:      "회원가입",
		Keywords: []string{"가입", "계정"},
		Answer:   "홈페이지 우측 상단의 '회원가입' 버튼을 눌러 이메일 인증 후 가입하실 수 있습니다.",
	},
	{
		Key:      "비밀번호",
		Keywords: []string{"로그인", "password"},
		Answer:   "로그인 화면의 '비밀번호 찾기'를 이용하시면 가입하신 이메일로 재설정 링크를 보내드립니다.",
	},
}

var defaultProducts = []Product{
	{
		Key:         "스마트폰",
		Name:        "A2A 스마트폰 Pro",
		Price:       "999,000원",
		Description: "최첨단 A2A 기술을 탑재한 프리미엄 스마트폰입니다. 인공지능 기능과 고해상도 카메라가 특징입니다.",
	},
	{
		Key:         "노트북",
		Name:        "A2A 노트북 Air",
		Price:       "1,599,000원",
		Description: "초경량 디자인에 강력한 성능을 갖춘 프리미엄 노트북입니다. 전문가용 소프트웨어 실행에 최적화되어 있습니다.",
	},
}
