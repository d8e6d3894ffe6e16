package gateway

type CreateResult struct {
	id   string
	body any
}

func NewCreateResult(id string, body any) *CreateResult {
	return &CreateResult{id: id, body: body}
}

// ID returns the identifier that the store assigned to the new document
func (r CreateResult) ID() string {
	return r.id
}

// Body returns the response body as configured for the resource
func (r CreateResult) Body() any {
	return r.body
}

type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

type Message struct {
	Message string `json:"message"`
}
