package llm

import (
	"context"
	"strings"
)

// keywordRules are checked in order; the first category with a matching
// keyword wins.
var keywordRules = []struct {
	category Category
	keywords []string
}{
	{CategoryBilling, []string{"결제", "환불", "청구", "주문 내역", "영수증", "카드", "refund", "payment", "invoice", "billing"}},
	{CategoryShipping, []string{"배송", "택배", "추적", "도착", "shipping", "delivery", "tracking"}},
	{CategoryProduct, []string{"제품", "스마트폰", "노트북", "스마트워치", "태블릿", "사양", "스펙", "가격", "재고", "product", "price"}},
	{CategoryGeneral, []string{"영업", "문의", "회원", "비밀번호", "계정", "hours", "account"}},
}

// KeywordClassifier is an offline Classifier driven by keyword rules.
// Queries that match no rule are classified as other.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, query string) Category {
	q := strings.ToLower(query)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// StaticGenerator is an offline Generator that always returns the same answer.
type StaticGenerator struct {
	Answer string
}

// DefaultStaticAnswer is used by a zero StaticGenerator.
const DefaultStaticAnswer = "문의해 주셔서 감사합니다. 담당자가 확인 후 안내해 드리겠습니다."

func (g StaticGenerator) Generate(context.Context, string) string {
	if g.Answer == "" {
		return DefaultStaticAnswer
	}
	return g.Answer
}

// Offline combines KeywordClassifier and StaticGenerator.
type Offline struct {
	KeywordClassifier
	StaticGenerator
}
