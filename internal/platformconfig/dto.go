package platformconfig

import (
	"time"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// ConfigDTO is the transport shape of one configuration entry.
type ConfigDTO struct {
	Key         string                `json:"key"`
	Value       string                `json:"value"`
	ValueType   enums.ConfigValueType `json:"value_type"`
	Description *string               `json:"description,omitempty"`
	Editable    bool                  `json:"editable"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func FromModel(c *models.PlatformConfig) *ConfigDTO {
	if c == nil {
		return nil
	}
	return &ConfigDTO{
		Key:         c.Key,
		Value:       c.Value,
		ValueType:   c.ValueType,
		Description: c.Description,
		Editable:    c.Editable,
		UpdatedAt:   c.UpdatedAt,
	}
}

func FromModels(items []models.PlatformConfig) []ConfigDTO {
	out := make([]ConfigDTO, 0, len(items))
	for i := range items {
		out = append(out, *FromModel(&items[i]))
	}
	return out
}
