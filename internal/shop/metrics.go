package shop

import "github.com/prometheus/client_golang/prometheus"

const (
	loginOK     = "ok"
	loginFailed = "invalid_credentials"
)

type ShopMetrics struct {
	CartAdds *prometheus.CounterVec
	Logins   *prometheus.CounterVec
}

func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	m := &ShopMetrics{
		CartAdds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_cart_adds_total",
				Help: "Products added to carts",
			},
			[]string{"product_id"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.CartAdds, m.Logins)
	return m
}

func (m *ShopMetrics) cartAdd(productID string) {
	if m == nil {
		return
	}
	m.CartAdds.WithLabelValues(productID).Inc()
}

func (m *ShopMetrics) login(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}
