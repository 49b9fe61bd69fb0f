package generation

// CreateForm is the multipart form for a generation request
type CreateForm struct {
	Style     string `json:"style" validate:"required,style"`
	ChildName string `json:"child_name" validate:"max=40"`
}
