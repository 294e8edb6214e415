package installer

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandevgo/datacom/internal/providers/llm"
)

type modelLister func(ctx context.Context, baseURL string) ([]string, error)

// ModelStep picks one of the models already pulled into Ollama
type ModelStep struct {
	list     list.Model
	fetch    modelLister
	loading  bool
	fetching bool // Ensures we only trigger the API call once
	err      error
}

func NewModelStep() Step {
	return newModelStep(llm.OllamaModels)
}

func newModelStep(fetch modelLister) *ModelStep {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select Assistant Model"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return &ModelStep{
		list:    l,
		fetch:   fetch,
		loading: true,
	}
}

func (s *ModelStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *ModelStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	// Trigger fetch once when we enter the step
	if s.loading && !s.fetching {
		s.fetching = true
		baseURL := state.EnvVars[keyOllamaURL]
		fetch := s.fetch

		return s, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			models, err := fetch(ctx, baseURL)
			if err != nil {
				return errMsg(err)
			}
			if len(models) == 0 {
				return errMsg(fmt.Errorf("no models pulled on %s, run `ollama pull tinyllama` first", baseURL))
			}

			items := make([]list.Item, 0, len(models))
			for _, name := range models {
				items = append(items, item{
					id:    name,
					title: name,
					desc:  "Served by " + baseURL,
				})
			}
			return modelsMsg(items)
		}
	}

	s.list.SetSize(width, height-4)

	var cmd tea.Cmd
	switch msg := msg.(type) {
	case modelsMsg:
		s.list.SetItems(msg)
		s.loading = false
		s.fetching = false
		return s, nil

	case errMsg:
		s.loading = false
		s.fetching = false
		s.err = msg
		return s, nil

	case tea.KeyMsg:
		// Enter retries after an error
		if s.err != nil {
			if msg.String() == "enter" {
				s.err = nil
				s.loading = true
				s.fetching = false
			}
			return s, nil
		}

		if msg.String() == "enter" {
			wasFiltering := s.list.FilterState() == list.Filtering
			s.list, cmd = s.list.Update(msg)

			if wasFiltering || s.list.FilterState() == list.Filtering {
				return s, cmd
			}

			if i, ok := s.list.SelectedItem().(item); ok {
				state.EnvVars[keyModel] = i.id
				return nil, nil
			}
			return s, cmd
		}
	}

	s.list, cmd = s.list.Update(msg)
	return s, cmd
}

func (s *ModelStep) View(state *InstallState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error fetching models: %v", s.err)) +
			"\n\nCheck that Ollama is running.\n\n(press enter to retry, ctrl+c to quit)\n"
	}
	if s.loading {
		return "Fetching models from Ollama...\n"
	}
	return s.list.View()
}
