package sharepoint

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/models"
	"github.com/ternarybob/scribe/internal/services/convert"
)

// DefaultIncludeRegex selects Word documents
const DefaultIncludeRegex = `(.*)\.docx`

// scanDelay spaces out subfolder listings
const scanDelay = time.Second

// rule is a compiled folder scope
type rule struct {
	relativeURL string
	recursive   bool
	include     *regexp.Regexp
	exclude     *regexp.Regexp
}

// Source exposes SharePoint folders to the ingest pipeline. A scope is the
// server-relative URL of a configured folder.
type Source struct {
	client     *Client
	converter  *convert.Converter
	rules      map[string]rule
	maxFolders int
	delay      time.Duration
	logger     arbor.ILogger
}

// NewSource compiles the configured folder rules
func NewSource(client *Client, converter *convert.Converter, config common.SharePointConfig, logger arbor.ILogger) (*Source, error) {
	rules := make(map[string]rule, len(config.Scopes))
	for _, scope := range config.Scopes {
		compiled, err := compileRule(scope)
		if err != nil {
			return nil, err
		}
		rules[scope.RelativeURL] = compiled
	}

	maxFolders := config.MaxFolders
	if maxFolders <= 0 {
		maxFolders = 100
	}

	return &Source{
		client:     client,
		converter:  converter,
		rules:      rules,
		maxFolders: maxFolders,
		delay:      scanDelay,
		logger:     logger,
	}, nil
}

// compileRule anchors both expressions at the start of the URL
func compileRule(scope common.SharePointScopeConfig) (rule, error) {
	include := scope.IncludeRegex
	if include == "" {
		include = DefaultIncludeRegex
	}
	includeRe, err := regexp.Compile("^(?:" + include + ")")
	if err != nil {
		return rule{}, fmt.Errorf("invalid include regex for %s: %w", scope.RelativeURL, err)
	}

	var excludeRe *regexp.Regexp
	if scope.ExcludeRegex != "" {
		excludeRe, err = regexp.Compile("^(?:" + scope.ExcludeRegex + ")")
		if err != nil {
			return rule{}, fmt.Errorf("invalid exclude regex for %s: %w", scope.RelativeURL, err)
		}
	}

	return rule{
		relativeURL: scope.RelativeURL,
		recursive:   scope.Recursive,
		include:     includeRe,
		exclude:     excludeRe,
	}, nil
}

func (r rule) excluded(value string) bool {
	return r.exclude != nil && r.exclude.MatchString(value)
}

// Name identifies SharePoint chunks
func (s *Source) Name() string {
	return models.SourceSharePoint
}

// ListItems returns the latest matching file of the folder and of each subfolder
func (s *Source) ListItems(ctx context.Context, scope string) ([]models.RemoteItem, error) {
	r, ok := s.rules[scope]
	if !ok {
		compiled, err := compileRule(common.SharePointScopeConfig{RelativeURL: scope})
		if err != nil {
			return nil, err
		}
		r = compiled
	}

	files, err := s.client.Files(ctx, scope)
	if err != nil {
		return nil, err
	}

	var items []models.RemoteItem
	if item, ok := s.latest(r, scope, files); ok {
		items = append(items, item)
	}

	folders, err := s.client.Folders(ctx, scope)
	if err != nil {
		return nil, err
	}

	for i, folder := range folders {
		if i >= s.maxFolders {
			s.logger.Warn().
				Str("scope", scope).
				Int("max_folders", s.maxFolders).
				Msg("Subfolder limit reached")
			break
		}
		if r.excluded(folder.Name) || r.excluded(escapePath(folder.ServerRelativeURL)) {
			s.logger.Debug().Str("folder", folder.Name).Msg("Skipping excluded folder")
			continue
		}
		if i > 0 {
			if err := sleep(ctx, s.delay); err != nil {
				return items, err
			}
		}

		folderFiles, err := s.collectFiles(ctx, folder.ServerRelativeURL, r.recursive)
		if err != nil {
			return nil, err
		}
		if item, ok := s.latest(r, scope, folderFiles); ok {
			items = append(items, item)
		}
	}

	s.logger.Info().
		Str("scope", scope).
		Int("folders", len(folders)).
		Int("items", len(items)).
		Msg("Listed SharePoint documents")

	return items, nil
}

// collectFiles lists the folder's files, descending into nested folders when recursive
func (s *Source) collectFiles(ctx context.Context, folder string, recursive bool) ([]File, error) {
	files, err := s.client.Files(ctx, folder)
	if err != nil {
		return nil, err
	}
	if !recursive {
		return files, nil
	}

	nested, err := s.client.Folders(ctx, folder)
	if err != nil {
		return nil, err
	}
	for _, child := range nested {
		childFiles, err := s.collectFiles(ctx, child.ServerRelativeURL, true)
		if err != nil {
			return nil, err
		}
		files = append(files, childFiles...)
	}
	return files, nil
}

// latest filters files by the rule and keeps the one whose name sorts last,
// so the highest version of a document wins
func (s *Source) latest(r rule, scope string, files []File) (models.RemoteItem, bool) {
	var matched []File
	for _, file := range files {
		escaped := escapePath(file.ServerRelativeURL)
		if r.excluded(escaped) {
			continue
		}
		if r.include.MatchString(escaped) {
			matched = append(matched, file)
		}
	}
	if len(matched) == 0 {
		return models.RemoteItem{}, false
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Name > matched[j].Name
	})
	file := matched[0]

	s.logger.Debug().
		Str("name", file.Name).
		Str("last_modified", file.TimeLastModified).
		Int("candidates", len(matched)).
		Msg("Selected document")

	return models.RemoteItem{
		ExternalID:   file.UniqueID,
		Title:        file.Name,
		URL:          s.client.FileURL(file),
		LastModified: file.TimeLastModified,
		Scope:        scope,
		Extension:    path.Ext(file.Name),
		Source:       models.SourceSharePoint,
	}, true
}

// FetchContent downloads the file and converts it by extension
func (s *Source) FetchContent(ctx context.Context, item models.RemoteItem) (string, error) {
	data, err := s.client.Download(ctx, item.ExternalID)
	if err != nil {
		return "", err
	}
	extension := item.Extension
	if extension == "" {
		extension = path.Ext(item.Title)
	}
	return s.converter.ToMarkdown(extension, data)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
