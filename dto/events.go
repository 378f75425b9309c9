package dto

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id         string      `json:"id"`
	Tenant     string      `json:"tenant"`
	EntityType string      `json:"entityType"`
	EntityId   string      `json:"entityId"`
	EventType  string      `json:"eventType"`
	Data       interface{} `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	Timestamp   string `json:"timestamp"`
}

type LogRecorded struct {
	LogRecordID int64    `json:"logRecordId"`
	TenantID    int64    `json:"tenantId"`
	OrderDate   string   `json:"orderDate"`
	Gross       float64  `json:"gross"`
	Tips        float64  `json:"tips"`
	Mileage     *float64 `json:"mileage"`
	SheetSynced bool     `json:"sheetSynced"`
}

type LemonWebhook struct {
	Meta struct {
		EventName string `json:"event_name"`
	} `json:"meta"`
	Data struct {
		Attributes struct {
			CustomerEmail string `json:"customer_email"`
		} `json:"attributes"`
	} `json:"data"`
}
