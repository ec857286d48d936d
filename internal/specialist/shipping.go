package specialist

import (
	"fmt"
	"strings"

	"a2a-support-desk/internal/a2a"
)

type shippingPolicy struct {
	id          string
	name        string
	price       string
	time        string
	description string
}

type trackingEvent struct {
	time   string
	status string
}

type shipment struct {
	orderID           string
	product           string
	status            string
	history           []trackingEvent
	estimatedDelivery string
	carrier           string
	recipient         string
}

// ShippingResponder answers tracking and shipping-policy questions.
type ShippingResponder struct {
	policies []shippingPolicy
	tracking map[string]shipment
	order    []string
}

// NewShippingResponder returns a responder backed by sample shipments.
func NewShippingResponder() *ShippingResponder {
	return &ShippingResponder{
		policies: []shippingPolicy{
			{"standard", "표준 배송", "3,000원", "2-3일 소요", "일반 택배 서비스를 통해 배송됩니다."},
			{"express", "빠른 배송", "6,000원", "다음날 배송", "주문 당일 오후 3시 이전 결제 완료 시 다음날 도착을 보장합니다."},
			{"same_day", "당일 배송", "10,000원", "당일 도착", "서울 및 수도권 지역에 한해 오전 11시 이전 주문 시 당일 저녁 도착을 보장합니다."},
		},
		order: []string{"TRK123456789", "TRK987654321", "TRK567890123"},
		tracking: map[string]shipment{
			"TRK123456789": {
				orderID: "ORD-20250511-001",
				product: "스마트폰 Pro",
				status:  "배송 완료",
				history: []trackingEvent{
					{"2025-05-09 14:23", "주문 접수"},
					{"2025-05-10 09:15", "상품 준비 중"},
					{"2025-05-10 18:30", "배송 시작"},
					{"2025-05-11 13:45", "배송 완료"},
				},
				estimatedDelivery: "2025-05-11",
				carrier:           "A2A 물류",
				recipient:         "홍길동",
			},
			"TRK987654321": {
				orderID: "ORD-20250511-002",
				product: "노트북 Air",
				status:  "배송 중",
				history: []trackingEvent{
					{"2025-05-10 11:42", "주문 접수"},
					{"2025-05-11 10:30", "상품 준비 중"},
					{"2025-05-12 09:15", "배송 시작"},
				},
				estimatedDelivery: "2025-05-13",
				carrier:           "A2A 물류",
				recipient:         "김철수",
			},
			"TRK567890123": {
				orderID: "ORD-20250512-001",
				product: "스마트워치 4",
				status:  "상품 준비 중",
				history: []trackingEvent{
					{"2025-05-12 09:07", "주문 접수"},
					{"2025-05-12 10:23", "상품 준비 중"},
				},
				estimatedDelivery: "2025-05-14",
				carrier:           "A2A 물류",
				recipient:         "이영희",
			},
		},
	}
}

func (r *ShippingResponder) Role() string { return RoleShipping }

func (r *ShippingResponder) Card(baseURL string) a2a.AgentCard {
	return a2a.AgentCard{
		ID:          "shipping-agent",
		Name:        "배송 정보 에이전트",
		Description: "배송 상태 추적, 배송 정책 안내, 예상 배송 일정을 제공하는 에이전트",
		Version:     "1.0.0",
		BaseURL:     baseURL,
		Capabilities: []a2a.Capability{
			{
				Name:        "track_shipping",
				Description: "배송 추적 번호를 사용하여 배송 상태를 확인합니다",
				Parameters: map[string]any{
					"tracking_number": map[string]any{"type": "string", "description": "배송 추적 번호"},
				},
			},
			{
				Name:        "get_shipping_policy",
				Description: "배송 정책에 대한 정보를 제공합니다",
				Parameters: map[string]any{
					"policy_type": map[string]any{"type": "string", "description": "특정 배송 정책 유형 (기본값: 모든 정책)", "required": false},
				},
			},
		},
	}
}

func (r *ShippingResponder) Greeting() string {
	return "안녕하세요! 배송 정보 에이전트입니다. 배송 조회나 배송 정책에 대해 문의하시겠어요?"
}

func (r *ShippingResponder) Respond(query string) string {
	q := strings.ToLower(query)

	switch {
	case (strings.Contains(q, "배송") && containsAny(q, "조회", "확인", "상태")) || strings.Contains(q, "추적"):
		return r.track(q)
	case containsAny(q, "정책", "비용", "요금", "기간"):
		return r.policy(q)
	default:
		var b strings.Builder
		b.WriteString("배송에 관련된 다음 서비스를 제공해 드릴 수 있습니다:\n\n")
		b.WriteString("1. 배송 추적: 배송 상태를 확인하려면 추적 번호를 알려주세요.\n")
		b.WriteString("2. 배송 정책: 표준 배송, 빠른 배송, 당일 배송 등의 정책 정보를 안내해 드립니다.\n")
		b.WriteString("3. 배송 문제 해결: 배송 지연, 분실 등의 문제 발생 시 해결 방법을 안내해 드립니다.\n\n")
		b.WriteString("어떤 도움이 필요하신가요?")
		return b.String()
	}
}

func (r *ShippingResponder) track(q string) string {
	for _, number := range r.order {
		if !strings.Contains(q, strings.ToLower(number)) {
			continue
		}
		s := r.tracking[number]
		var b strings.Builder
		fmt.Fprintf(&b, "📦 배송 추적 정보 (%s)\n\n", number)
		fmt.Fprintf(&b, "주문 번호: %s\n", s.orderID)
		fmt.Fprintf(&b, "상품: %s\n", s.product)
		fmt.Fprintf(&b, "상태: %s\n", s.status)
		fmt.Fprintf(&b, "예상 배송일: %s\n", s.estimatedDelivery)
		fmt.Fprintf(&b, "배송사: %s\n", s.carrier)
		fmt.Fprintf(&b, "수령인: %s\n\n", s.recipient)
		b.WriteString("배송 이력:\n")
		for _, e := range s.history {
			fmt.Fprintf(&b, "• %s - %s\n", e.time, e.status)
		}
		return b.String()
	}
	return "배송 추적을 위해서는 유효한 추적 번호가 필요합니다. 테스트를 위해 다음의 샘플 번호를 사용해보세요: " +
		strings.Join(r.order, ", ")
}

func (r *ShippingResponder) policy(q string) string {
	var id string
	switch {
	case containsAny(q, "표준", "일반"):
		id = "standard"
	case containsAny(q, "빠른", "익일", "익스프레스"):
		id = "express"
	case strings.Contains(q, "당일"):
		id = "same_day"
	}

	var b strings.Builder
	for _, p := range r.policies {
		if p.id != id {
			continue
		}
		fmt.Fprintf(&b, "📦 %s 정책\n\n", p.name)
		fmt.Fprintf(&b, "비용: %s\n", p.price)
		fmt.Fprintf(&b, "소요 시간: %s\n", p.time)
		fmt.Fprintf(&b, "상세 정보: %s", p.description)
		return b.String()
	}

	b.WriteString("📦 배송 정책 안내\n\n")
	for _, p := range r.policies {
		fmt.Fprintf(&b, "[%s]\n", p.name)
		fmt.Fprintf(&b, "비용: %s\n", p.price)
		fmt.Fprintf(&b, "소요 시간: %s\n", p.time)
		fmt.Fprintf(&b, "상세 정보: %s\n\n", p.description)
	}
	return b.String()
}
