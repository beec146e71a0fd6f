package pipeline

import (
	"mirrord/internal/model"
	"path/filepath"
	"strings"
)

func Filter(inCh <-chan model.CreationEvent, ignoreList []string) <-chan model.CreationEvent {
	outCh := make(chan model.CreationEvent, cap(inCh))

	go func() {
		defer close(outCh)

		for event := range inCh {
			if ShouldIgnore(event.Path, ignoreList) {
				continue
			}
			outCh <- event
		}
	}()

	return outCh
}

func ShouldIgnore(path string, ignoreList []string) bool {
	parts := strings.Split(filepath.ToSlash(path), "/")

	for _, part := range parts {
		for _, pattern := range ignoreList {
			matched, err := filepath.Match(pattern, part)
			if err == nil && matched {
				return true
			}
		}
	}

	return false
}
