package specialist

import (
	"fmt"
	"strings"

	"a2a-support-desk/internal/a2a"
)

type productSpec struct {
	key   string
	value string
}

type product struct {
	name         string
	price        string
	description  string
	specs        []productSpec
	availability string
	warranty     string
}

// ProductResponder answers price, spec, stock and warranty questions.
type ProductResponder struct {
	order    []string
	products map[string]product
	aliases  map[string][]string
}

// NewProductResponder returns a responder backed by the sample catalogue.
func NewProductResponder() *ProductResponder {
	return &ProductResponder{
		order: []string{"스마트폰", "노트북", "스마트워치", "태블릿"},
		aliases: map[string][]string{
			"스마트폰":  {"스마트폰", "휴대폰", "폰", "모바일"},
			"노트북":   {"노트북", "랩탑", "컴퓨터"},
			"스마트워치": {"스마트워치", "워치", "시계"},
			"태블릿":   {"태블릿", "패드", "탭"},
		},
		products: map[string]product{
			"스마트폰": {
				name:         "A2A 스마트폰 Pro",
				price:        "999,000원",
				description:  "최첨단 A2A 기술을 탑재한 프리미엄 스마트폰입니다. 인공지능 기능과 고해상도 카메라가 특징입니다.",
				specs:        []productSpec{{"display", "6.7인치 OLED"}, {"processor", "A2A X1 칩셋"}, {"camera", "50MP 트리플 카메라"}, {"battery", "5000mAh"}},
				availability: "재고 있음",
				warranty:     "1년 무상 보증",
			},
			"노트북": {
				name:         "A2A 노트북 Air",
				price:        "1,599,000원",
				description:  "초경량 디자인에 강력한 성능을 갖춘 프리미엄 노트북입니다. 전문가용 소프트웨어 실행에 최적화되어 있습니다.",
				specs:        []productSpec{{"display", "14인치 레티나 디스플레이"}, {"processor", "A2A M2 칩셋"}, {"memory", "16GB 통합 메모리"}, {"storage", "512GB SSD"}},
				availability: "재고 있음",
				warranty:     "1년 무상 보증",
			},
			"스마트워치": {
				name:         "A2A 워치 4",
				price:        "499,000원",
				description:  "건강 모니터링과 피트니스 기능이 강화된 최신 스마트워치입니다. 방수 기능과 긴 배터리 수명이 특징입니다.",
				specs:        []productSpec{{"display", "1.9인치 AMOLED"}, {"sensors", "심박수, 혈중 산소, 심전도"}, {"battery", "최대 2일 사용 가능"}, {"connectivity", "블루투스 5.2, WiFi"}},
				availability: "재고 있음",
				warranty:     "1년 무상 보증",
			},
			"태블릿": {
				name:         "A2A 태블릿 Pro",
				price:        "899,000원",
				description:  "강력한 성능과 S펜 지원을 갖춘 크리에이티브 작업용 태블릿입니다. 선명한 디스플레이가 특징입니다.",
				specs:        []productSpec{{"display", "11인치 Super AMOLED"}, {"processor", "A2A X1 칩셋"}, {"memory", "8GB RAM"}, {"storage", "256GB"}},
				availability: "재고 있음",
				warranty:     "1년 무상 보증",
			},
		},
	}
}

func (r *ProductResponder) Role() string { return RoleProduct }

func (r *ProductResponder) Card(baseURL string) a2a.AgentCard {
	return a2a.AgentCard{
		ID:          "product-agent",
		Name:        "제품 정보 에이전트",
		Description: "제품 상세 정보, 사양, 가격, 재고 상태 등을 제공하는 에이전트",
		Version:     "1.0.0",
		BaseURL:     baseURL,
		Capabilities: []a2a.Capability{
			{
				Name:        "get_product_info",
				Description: "특정 제품에 대한 상세 정보를 제공합니다",
				Parameters: map[string]any{
					"product_name": map[string]any{"type": "string", "description": "정보를 원하는 제품명"},
				},
			},
			{
				Name:        "check_availability",
				Description: "제품의 재고 상태를 확인합니다",
				Parameters: map[string]any{
					"product_name": map[string]any{"type": "string", "description": "재고를 확인할 제품명"},
				},
			},
		},
	}
}

func (r *ProductResponder) Greeting() string {
	return "안녕하세요! 제품 정보 에이전트입니다. 어떤 제품에 대해 알고 싶으신가요?"
}

func (r *ProductResponder) Respond(query string) string {
	q := strings.ToLower(query)

	key, ok := r.find(q)
	if !ok {
		return "죄송합니다. 요청하신 제품을 찾을 수 없습니다. 현재 정보를 제공할 수 있는 제품은 다음과 같습니다: " +
			strings.Join(r.order, ", ")
	}
	p := r.products[key]

	switch {
	case strings.Contains(q, "가격"):
		return fmt.Sprintf("%s %s의 가격은 %s입니다.", key, p.name, p.price)
	case containsAny(q, "사양", "스펙"):
		lines := make([]string, 0, len(p.specs))
		for _, s := range p.specs {
			lines = append(lines, fmt.Sprintf("- %s: %s", s.key, s.value))
		}
		return fmt.Sprintf("%s %s의 사양:\n%s", key, p.name, strings.Join(lines, "\n"))
	case containsAny(q, "재고", "구매", "구입"):
		return fmt.Sprintf("%s %s은(는) %s입니다.", key, p.name, p.availability)
	case containsAny(q, "보증", "as", "a/s"):
		return fmt.Sprintf("%s %s의 보증 정책: %s", key, p.name, p.warranty)
	default:
		return fmt.Sprintf("%s %s:\n가격: %s\n설명: %s\n재고: %s\n보증: %s",
			key, p.name, p.price, p.description, p.availability, p.warranty)
	}
}

func (r *ProductResponder) find(q string) (string, bool) {
	for _, key := range r.order {
		if containsAny(q, r.aliases[key]...) {
			return key, true
		}
	}
	return "", false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
