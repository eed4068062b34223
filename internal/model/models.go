package model

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&TariffPlan{},
		&Facility{},
		&Vehicle{},
		&SessionOpen{},
		&SessionHistory{},
		&PushSubscription{},
	}
}
