package specialist

import (
	"fmt"
	"strconv"
	"strings"

	"a2a-support-desk/internal/a2a"
)

type paymentMethod struct {
	id          string
	name        string
	description string
	discount    string
	limit       string
}

type refund struct {
	status string
	reason string
	date   string
	amount int
}

type order struct {
	customerID    string
	product       string
	amount        int
	paymentMethod string
	paymentStatus string
	paymentDate   string
	invoiceNumber string
	refund        *refund
}

// BillingResponder answers order, payment-method and refund questions.
type BillingResponder struct {
	methods []paymentMethod
	orders  map[string]order
	order   []string
}

// NewBillingResponder returns a responder backed by sample orders.
func NewBillingResponder() *BillingResponder {
	return &BillingResponder{
		methods: []paymentMethod{
			{"credit_card", "신용카드", "국내외 모든 신용카드로 결제 가능합니다.", "0-5% (카드사별 상이)", "한도 없음"},
			{"bank_transfer", "계좌이체", "실시간 계좌이체로 즉시 결제됩니다.", "2%", "한도 없음"},
			{"mobile_pay", "모바일 결제", "카카오페이, 토스, 페이코 등의 간편결제를 지원합니다.", "1-3%", "일 100만원 한도"},
		},
		order: []string{"ORD-20250511-001", "ORD-20250511-002", "ORD-20250512-001", "ORD-20250501-001"},
		orders: map[string]order{
			"ORD-20250511-001": {"CUST001", "스마트폰 Pro", 999000, "신용카드", "결제 완료", "2025-05-09 14:23", "INV-20250509-001", nil},
			"ORD-20250511-002": {"CUST002", "노트북 Air", 1599000, "모바일 결제", "결제 완료", "2025-05-10 11:42", "INV-20250510-001", nil},
			"ORD-20250512-001": {"CUST003", "스마트워치 4", 499000, "계좌이체", "결제 완료", "2025-05-12 09:07", "INV-20250512-001", nil},
			"ORD-20250501-001": {"CUST004", "스마트폰 Pro", 999000, "신용카드", "환불 완료", "2025-05-01 10:15", "INV-20250501-001",
				&refund{status: "환불 완료", reason: "고객 변심", date: "2025-05-03 15:30", amount: 999000}},
		},
	}
}

func (r *BillingResponder) Role() string { return RoleBilling }

func (r *BillingResponder) Card(baseURL string) a2a.AgentCard {
	return a2a.AgentCard{
		ID:          "billing-agent",
		Name:        "결제 및 청구 에이전트",
		Description: "결제 처리, 청구서 조회, 환불 정책을 제공하는 에이전트",
		Version:     "1.0.0",
		BaseURL:     baseURL,
		Capabilities: []a2a.Capability{
			{
				Name:        "check_order",
				Description: "주문 번호로 결제 정보를 조회합니다",
				Parameters: map[string]any{
					"order_id": map[string]any{"type": "string", "description": "조회할 주문 번호"},
				},
			},
			{Name: "get_payment_methods", Description: "사용 가능한 결제 수단 정보를 제공합니다", Parameters: map[string]any{}},
			{Name: "refund_policy", Description: "환불 정책에 대한 정보를 제공합니다", Parameters: map[string]any{}},
		},
	}
}

func (r *BillingResponder) Greeting() string {
	return "안녕하세요! 결제 및 청구 에이전트입니다. 결제 방법, 주문 내역 조회, 환불 정책 등에 대해 문의하실 수 있습니다."
}

func (r *BillingResponder) Respond(query string) string {
	q := strings.ToLower(query)

	switch {
	case (strings.Contains(q, "주문") && containsAny(q, "조회", "확인", "내역")) || strings.Contains(q, "결제 내역"):
		return r.lookupOrder(q)
	case strings.Contains(q, "결제") && containsAny(q, "방법", "수단"):
		return r.paymentMethods(q)
	case containsAny(q, "환불", "취소", "반품"):
		return refundPolicy
	default:
		var b strings.Builder
		b.WriteString("결제 및 청구와 관련된 다음 서비스를 제공해 드릴 수 있습니다:\n\n")
		b.WriteString("1. 주문 내역 조회: 주문 번호를 알려주시면 결제 상태를 확인해 드립니다.\n")
		b.WriteString("2. 결제 방법 안내: 신용카드, 계좌이체, 모바일 결제 등의 정보를 안내해 드립니다.\n")
		b.WriteString("3. 환불 정책: 환불 신청 방법과 처리 기간 등을 안내해 드립니다.\n\n")
		b.WriteString("어떤 도움이 필요하신가요?")
		return b.String()
	}
}

func (r *BillingResponder) lookupOrder(q string) string {
	for _, id := range r.order {
		if !strings.Contains(q, strings.ToLower(id)) {
			continue
		}
		o := r.orders[id]
		var b strings.Builder
		fmt.Fprintf(&b, "💰 주문 내역 (%s)\n\n", id)
		fmt.Fprintf(&b, "상품: %s\n", o.product)
		fmt.Fprintf(&b, "금액: %s원\n", formatWon(o.amount))
		fmt.Fprintf(&b, "결제 수단: %s\n", o.paymentMethod)
		fmt.Fprintf(&b, "결제 상태: %s\n", o.paymentStatus)
		fmt.Fprintf(&b, "결제일: %s\n", o.paymentDate)
		fmt.Fprintf(&b, "청구서 번호: %s\n", o.invoiceNumber)
		if o.refund != nil {
			b.WriteString("\n환불 정보:\n")
			fmt.Fprintf(&b, "상태: %s\n", o.refund.status)
			fmt.Fprintf(&b, "사유: %s\n", o.refund.reason)
			fmt.Fprintf(&b, "환불일: %s\n", o.refund.date)
			fmt.Fprintf(&b, "환불 금액: %s원", formatWon(o.refund.amount))
		}
		return b.String()
	}
	return "주문 내역을 조회하기 위해서는 유효한 주문 번호가 필요합니다. 테스트를 위해 다음의 샘플 주문 번호를 사용해보세요: " +
		strings.Join(r.order, ", ")
}

func (r *BillingResponder) paymentMethods(q string) string {
	var id string
	switch {
	case containsAny(q, "카드", "신용"):
		id = "credit_card"
	case containsAny(q, "계좌", "이체"):
		id = "bank_transfer"
	case containsAny(q, "모바일", "간편"):
		id = "mobile_pay"
	}

	var b strings.Builder
	for _, m := range r.methods {
		if m.id != id {
			continue
		}
		fmt.Fprintf(&b, "💳 %s 결제 정보\n\n", m.name)
		fmt.Fprintf(&b, "설명: %s\n", m.description)
		fmt.Fprintf(&b, "할인율: %s\n", m.discount)
		fmt.Fprintf(&b, "한도: %s", m.limit)
		return b.String()
	}

	b.WriteString("💳 사용 가능한 결제 수단 안내\n\n")
	for _, m := range r.methods {
		fmt.Fprintf(&b, "[%s]\n", m.name)
		fmt.Fprintf(&b, "설명: %s\n", m.description)
		fmt.Fprintf(&b, "할인율: %s\n", m.discount)
		fmt.Fprintf(&b, "한도: %s\n\n", m.limit)
	}
	return b.String()
}

const refundPolicy = "🔄 환불 정책 안내\n\n" +
	"1. 단순 변심에 의한 환불\n" +
	"   - 제품 수령 후 7일 이내에 환불 신청 가능\n" +
	"   - 제품이 미개봉 상태여야 함\n" +
	"   - 배송비는 고객 부담\n\n" +
	"2. 제품 하자에 의한 환불\n" +
	"   - 제품 수령 후 14일 이내에 환불 신청 가능\n" +
	"   - 제품 결함 증빙 자료 제출 필요\n" +
	"   - 배송비는 판매자 부담\n\n" +
	"3. 환불 처리 기간\n" +
	"   - 환불 승인 후 3-5 영업일 이내 처리\n" +
	"   - 결제 수단에 따라 환불 기간이 다를 수 있음\n\n" +
	"환불에 대한 자세한 문의는 고객센터(1234-5678)로 연락주세요."

// formatWon renders an amount with thousands separators.
func formatWon(n int) string {
	if n < 0 {
		return "-" + formatWon(-n)
	}
	s := strconv.Itoa(n)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}
