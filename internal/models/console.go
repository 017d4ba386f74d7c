package models

// Console request bodies. Optional fields are pointers so that an absent
// field leaves the stored value alone.

type AgentInput struct {
	Name        string         `json:"name" validate:"required,max=120"`
	Description string         `json:"description" validate:"max=2000"`
	Config      map[string]any `json:"config"`
}

type AgentUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type AgentTestRequest struct {
	Input string `json:"input" validate:"max=20000"`
}

type ChatbotInput struct {
	Name string `json:"name" validate:"required,max=120"`
}

type ChatbotUpdate struct {
	Name   *string        `json:"name" validate:"omitempty,min=1,max=120"`
	Status *ChatbotStatus `json:"status" validate:"omitempty,oneof=active needs_attention inactive"`
}

type TicketInput struct {
	Subject     string   `json:"subject" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Attachments []string `json:"attachments" validate:"urls"`
}

type APIKeyInput struct {
	Name string `json:"name" validate:"required,max=120"`
}

type UserUpdate struct {
	Name   *string     `json:"name" validate:"omitempty,max=120"`
	Status *UserStatus `json:"status" validate:"omitempty,oneof=active suspended"`
	Tier   *Tier       `json:"tier" validate:"omitempty,oneof=free pro"`
}

type RoleAssignment struct {
	Role Role `json:"role" validate:"required,oneof=user admin super_admin"`
}
