package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ServiceName identifies an AI chat provider
type ServiceName string

const (
	ServiceChatGPT    ServiceName = "ChatGPT"
	ServiceClaude     ServiceName = "Claude"
	ServiceGemini     ServiceName = "Gemini"
	ServicePerplexity ServiceName = "Perplexity"
)

// ServiceNames lists the supported providers in display order
var ServiceNames = []ServiceName{ServiceChatGPT, ServiceClaude, ServiceGemini, ServicePerplexity}

var serviceIcons = map[ServiceName]string{
	ServiceChatGPT:    "🤖",
	ServiceClaude:     "🧠",
	ServiceGemini:     "✨",
	ServicePerplexity: "🔮",
}

// ParseServiceName resolves a provider name case-insensitively
func ParseServiceName(s string) (ServiceName, error) {
	for _, name := range ServiceNames {
		if strings.EqualFold(string(name), strings.TrimSpace(s)) {
			return name, nil
		}
	}
	return "", ErrUnknownService.WithMessage("Unknown AI service: " + s)
}

// Icon returns the display glyph for the provider
func (n ServiceName) Icon() string {
	return serviceIcons[n]
}

// AIService is the per-user view of a provider connection
type AIService struct {
	Name        ServiceName `json:"name"`
	IsConnected bool        `json:"is_connected"`
	Icon        string      `json:"icon"`
}

// DefaultAIServices returns every provider in the disconnected state
func DefaultAIServices() []AIService {
	services := make([]AIService, 0, len(ServiceNames))
	for _, name := range ServiceNames {
		services = append(services, AIService{Name: name, Icon: name.Icon()})
	}
	return services
}

// MergeServiceConnections overlays persisted rows on the default catalog
func MergeServiceConnections(rows []ServiceConnection) []AIService {
	services := DefaultAIServices()
	for _, row := range rows {
		for i := range services {
			if services[i].Name == row.ServiceName {
				services[i].IsConnected = row.IsConnected
			}
		}
	}
	return services
}

// ServiceConnection is the persisted connection flag for one (user, service) pair
type ServiceConnection struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	ServiceName ServiceName `json:"service_name"`
	IsConnected bool        `json:"is_connected"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ServiceConnectionUpdate represents a toggle request
type ServiceConnectionUpdate struct {
	IsConnected *bool `json:"is_connected" validate:"required"`
}

// ServiceConnectionRepository defines the interface for service connection storage
type ServiceConnectionRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]ServiceConnection, error)
	Upsert(ctx context.Context, conn *ServiceConnection) error
}
