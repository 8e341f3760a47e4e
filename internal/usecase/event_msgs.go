package usecase

// Sent by the warehouse on Kafka when goods arrive or are written off.
type StockAdjustedMsg struct {
	ProductID int64  `json:"productId"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason,omitempty"` // e.g. "restock", "write_off"
}

// Notification is queued on RabbitMQ and delivered by the mail worker.
type Notification struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"` // HTML
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
}
