package archive

import "github.com/Rrens/chat-archive/internal/domain"

// SampleChats is the demo archive shown before any chat is imported
func SampleChats() []domain.Chat {
	return []domain.Chat{
		{
			ID:      "1",
			Title:   "Understanding Quantum Computing",
			Preview: "An in-depth discussion about quantum computing principles...",
			Date:    "2024-03-20",
			Source:  domain.ServiceChatGPT,
			Tags:    []string{"Technology", "Physics"},
		},
		{
			ID:      "2",
			Title:   "Creative Writing Tips",
			Preview: "Exploring various techniques for creative writing...",
			Date:    "2024-03-19",
			Source:  domain.ServiceClaude,
			Tags:    []string{"Writing", "Creativity"},
		},
		{
			ID:      "3",
			Title:   "Machine Learning Basics",
			Preview: "Introduction to fundamental concepts in ML...",
			Date:    "2024-03-18",
			Source:  domain.ServiceGemini,
			Tags:    []string{"AI", "Technology"},
		},
	}
}
