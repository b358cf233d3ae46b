package notion

import (
	"context"
	"errors"
	"fmt"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"
)

// Database property names.
const (
	propName    = "Name"
	propType    = "Type"
	propStatus  = "Status"
	propSource  = "Source"
	propContent = "Content"

	statusActive = "active"
	sourceText   = "telegram-text"

	titleLimit = 50
)

// Note types selectable after a note is saved.
const (
	TypeIdea     = "idea"
	TypeTask     = "task"
	TypePersonal = "personal"
)

var ErrUnknownNoteType = errors.New("unknown note type")

// Task is an active entry of the notes database.
type Task struct {
	ID    string
	Title string
	Type  string
}

type pageAPI interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	Update(ctx context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

type databaseAPI interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// Client stores notes in a single Notion database and lists the active ones.
type Client struct {
	pages      pageAPI
	databases  databaseAPI
	databaseID notionapi.DatabaseID
	log        *zap.Logger
}

// New creates a Client authenticated with an integration token.
func New(apiKey, databaseID string, log *zap.Logger) *Client {
	api := notionapi.NewClient(notionapi.Token(apiKey))
	return &Client{
		pages:      api.Page,
		databases:  api.Database,
		databaseID: notionapi.DatabaseID(databaseID),
		log:        log,
	}
}

// CreateNote saves text as an active task and returns the new page id.
func (c *Client) CreateNote(ctx context.Context, text string) (string, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: c.databaseID,
		},
		Properties: notionapi.Properties{
			propName: notionapi.TitleProperty{
				Title: []notionapi.RichText{{Text: &notionapi.Text{Content: noteTitle(text)}}},
			},
			propType:    selectValue(TypeTask),
			propStatus:  selectValue(statusActive),
			propSource:  richTextValue(sourceText),
			propContent: richTextValue(text),
		},
	}
	page, err := c.pages.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create notion page: %w", err)
	}
	id := page.ID.String()
	c.log.Info("saved note to notion", zap.String("page_id", id))
	return id, nil
}

// SetNoteType changes the Type property of an existing note.
func (c *Client) SetNoteType(ctx context.Context, pageID, noteType string) error {
	if !KnownType(noteType) {
		return fmt.Errorf("%w: %q", ErrUnknownNoteType, noteType)
	}
	req := &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{propType: selectValue(noteType)},
	}
	if _, err := c.pages.Update(ctx, notionapi.PageID(pageID), req); err != nil {
		return fmt.Errorf("update note type: %w", err)
	}
	c.log.Info("updated note type", zap.String("page_id", pageID), zap.String("type", noteType))
	return nil
}

// ActiveTasks returns every page whose Status is active, following pagination.
func (c *Client) ActiveTasks(ctx context.Context) ([]Task, error) {
	req := &notionapi.DatabaseQueryRequest{
		Filter: &notionapi.PropertyFilter{
			Property: propStatus,
			Select:   &notionapi.SelectFilterCondition{Equals: statusActive},
		},
	}

	var tasks []Task
	for {
		resp, err := c.databases.Query(ctx, c.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("query active tasks: %w", err)
		}
		for _, page := range resp.Results {
			tasks = append(tasks, taskFromPage(page))
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		req.StartCursor = resp.NextCursor
	}
	c.log.Info("found active tasks in notion", zap.Int("count", len(tasks)))
	return tasks, nil
}

// MorningMessage renders the current active tasks as the morning plan.
func (c *Client) MorningMessage(ctx context.Context) (string, error) {
	tasks, err := c.ActiveTasks(ctx)
	if err != nil {
		return "", err
	}
	return FormatMorningMessage(tasks), nil
}

// KnownType reports whether t is one of the selectable note types.
func KnownType(t string) bool {
	switch t {
	case TypeIdea, TypeTask, TypePersonal:
		return true
	}
	return false
}

func noteTitle(text string) string {
	r := []rune(text)
	if len(r) <= titleLimit {
		return text
	}
	return string(r[:titleLimit]) + "..."
}

func selectValue(name string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Select: notionapi.Option{Name: name}}
}

func richTextValue(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: s}}},
	}
}

func taskFromPage(page notionapi.Page) Task {
	t := Task{ID: page.ID.String(), Type: TypeTask}

	switch p := page.Properties[propName].(type) {
	case *notionapi.TitleProperty:
		t.Title = plainText(p.Title)
	case notionapi.TitleProperty:
		t.Title = plainText(p.Title)
	}
	switch p := page.Properties[propType].(type) {
	case *notionapi.SelectProperty:
		if p.Select.Name != "" {
			t.Type = p.Select.Name
		}
	case notionapi.SelectProperty:
		if p.Select.Name != "" {
			t.Type = p.Select.Name
		}
	}
	return t
}

// plainText returns the first text fragment, as the title is written by CreateNote.
func plainText(rt []notionapi.RichText) string {
	if len(rt) == 0 {
		return ""
	}
	if rt[0].Text != nil && rt[0].Text.Content != "" {
		return rt[0].Text.Content
	}
	return rt[0].PlainText
}
