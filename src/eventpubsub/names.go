package eventpubsub

const (
	PositionEvaluatedEvent = "PositionEvaluatedEvent"
	BalanceResetEvent      = "BalanceResetEvent"
)
