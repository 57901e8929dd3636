// Package archive holds the client-side views over archived chats and the
// per-user AI service settings.
package archive

import (
	"strings"

	"github.com/Rrens/chat-archive/internal/domain"
)

const folderSummaryPrefix = "A collection of conversations about "

// DeriveFolders groups chats into one folder per tag. Folders appear in the
// order their tag is first seen and keep the chat order of the input.
func DeriveFolders(chats []domain.Chat) []domain.TopicFolder {
	index := make(map[string]int)
	var folders []domain.TopicFolder

	for _, chat := range chats {
		seen := make(map[string]bool, len(chat.Tags))
		for _, tag := range chat.Tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true

			i, ok := index[tag]
			if !ok {
				i = len(folders)
				index[tag] = i
				folders = append(folders, domain.TopicFolder{
					Name:    tag,
					Summary: folderSummaryPrefix + strings.ToLower(tag),
				})
			}
			folders[i].Chats = append(folders[i].Chats, chat)
		}
	}
	return folders
}

// FilterFolders keeps folders whose name or any chat title contains query,
// ignoring case. An empty query keeps everything.
func FilterFolders(folders []domain.TopicFolder, query string) []domain.TopicFolder {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return folders
	}

	out := make([]domain.TopicFolder, 0, len(folders))
	for _, folder := range folders {
		if contains(folder.Name, q) || anyTitle(folder.Chats, q) {
			out = append(out, folder)
		}
	}
	return out
}

// FilterChats keeps chats whose title or any tag contains query, ignoring case.
func FilterChats(chats []domain.Chat, query string) []domain.Chat {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return chats
	}

	out := make([]domain.Chat, 0, len(chats))
	for _, chat := range chats {
		if contains(chat.Title, q) || anyTag(chat.Tags, q) {
			out = append(out, chat)
		}
	}
	return out
}

func anyTitle(chats []domain.Chat, q string) bool {
	for _, c := range chats {
		if contains(c.Title, q) {
			return true
		}
	}
	return false
}

func anyTag(tags []string, q string) bool {
	for _, t := range tags {
		if contains(t, q) {
			return true
		}
	}
	return false
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
