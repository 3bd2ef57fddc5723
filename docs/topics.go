// Package docs holds the user documentation, shown by the topic command.
package docs

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.md
var docs embed.FS

// Readme is the topic listing the other ones.
const Readme = "readme"

// GetTopic returns the markdown content of a topic.
func GetTopic(topic string) (string, error) {
	content, err := docs.ReadFile(topic + ".md")
	if err != nil {
		return "", fmt.Errorf("topic %q not found, available topics are %s", topic, strings.Join(AllTopics(), ", "))
	}
	return string(content), nil
}

// GetTopics concatenates topics. "*" stands for every topic.
func GetTopics(topics ...string) (string, error) {
	var b bytes.Buffer
	for _, topic := range topics {
		names := []string{topic}
		if topic == "*" {
			names = AllTopics()
		}
		for _, name := range names {
			content, err := GetTopic(name)
			if err != nil {
				return "", err
			}
			b.WriteString(content)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// AllTopics returns the sorted topic names, the readme excluded.
func AllTopics() []string {
	entries, _ := fs.ReadDir(docs, ".")
	var topics []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".md")
		if e.IsDir() || name == Readme {
			continue
		}
		topics = append(topics, name)
	}
	sort.Strings(topics)
	return topics
}
