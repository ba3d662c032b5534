package mailer

// Template names understood by the receipt worker.
const (
	TemplateReceipt   = "receipt"
	TemplateCardSaved = "card_saved"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for the receipt
// worker. Template selects one of the templates above; Data feeds it.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}
