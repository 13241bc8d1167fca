package constant

const (
	ProductionEnvironment = "production"

	PortfolioDatabaseName = "portfolio"

	OrderEventStreamName           = "portfolio_orders"
	OrderEventStreamSubjectAll     = "portfolio.orders.*"
	OrderEventSubjectOrderExecuted = "portfolio.orders.executed"

	QuoteCacheKeyPrefix = "naviin:quote:"
)
