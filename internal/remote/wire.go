package remote

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/p-n-ai/pai-tracker/internal/progress"
	"github.com/p-n-ai/pai-tracker/internal/summary"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type wireProblem struct {
	ID          string `json:"_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Difficulty  string `json:"difficulty" validate:"required"`
	Completed   bool   `json:"completed"`
	LeetcodeURL string `json:"leetcodeLink,omitempty" validate:"omitempty,url"`
	VideoURL    string `json:"videoLink,omitempty" validate:"omitempty,url"`
	ArticleURL  string `json:"articleLink,omitempty" validate:"omitempty,url"`
}

type wireTopic struct {
	ID       string        `json:"_id" validate:"required"`
	Title    string        `json:"title" validate:"required"`
	Progress float64       `json:"progress" validate:"gte=0,lte=100"`
	Problems []wireProblem `json:"problems" validate:"dive"`
}

type wireToggle struct {
	TopicID   string `json:"topicId"`
	ProblemID string `json:"problemId"`
	Completed bool   `json:"completed"`
}

type wireSummary struct {
	User struct {
		FullName string `json:"fullName" validate:"required"`
		Email    string `json:"email" validate:"omitempty,email"`
	} `json:"user"`
	TotalProblems  int     `json:"totalProblems" validate:"gte=0"`
	SolvedProblems int     `json:"solvedProblems" validate:"gte=0,ltefield=TotalProblems"`
	CompletionRate float64 `json:"completionRate" validate:"gte=0,lte=100"`
}

func (t wireTopic) toTopic() (progress.Topic, error) {
	out := progress.Topic{
		ID:       t.ID,
		Title:    t.Title,
		Progress: t.Progress,
		Problems: make([]progress.Problem, 0, len(t.Problems)),
	}
	for _, p := range t.Problems {
		d, err := progress.ParseDifficulty(p.Difficulty)
		if err != nil {
			return progress.Topic{}, fmt.Errorf("problem %s: %w", p.ID, err)
		}
		out.Problems = append(out.Problems, progress.Problem{
			ID:         p.ID,
			Name:       p.Name,
			Difficulty: d,
			Completed:  p.Completed,
			Links: progress.Links{
				Code:    p.LeetcodeURL,
				Video:   p.VideoURL,
				Article: p.ArticleURL,
			},
		})
	}
	return out, nil
}

func fromTopic(t progress.Topic) wireTopic {
	out := wireTopic{
		ID:       t.ID,
		Title:    t.Title,
		Progress: t.Progress,
		Problems: make([]wireProblem, 0, len(t.Problems)),
	}
	for _, p := range t.Problems {
		out.Problems = append(out.Problems, wireProblem{
			ID:          p.ID,
			Name:        p.Name,
			Difficulty:  string(p.Difficulty),
			Completed:   p.Completed,
			LeetcodeURL: p.Links.Code,
			VideoURL:    p.Links.Video,
			ArticleURL:  p.Links.Article,
		})
	}
	return out
}

func decodeTopics(wire []wireTopic) ([]progress.Topic, error) {
	topics := make([]progress.Topic, 0, len(wire))
	for _, wt := range wire {
		if err := validate.Struct(wt); err != nil {
			return nil, fmt.Errorf("topic %s: %w", wt.ID, err)
		}
		t, err := wt.toTopic()
		if err != nil {
			return nil, fmt.Errorf("topic %s: %w", wt.ID, err)
		}
		topics = append(topics, t)
	}
	return topics, nil
}

func checkSummary(s summary.Summary) error {
	var ws wireSummary
	ws.User.FullName = s.User.FullName
	ws.User.Email = s.User.Email
	ws.TotalProblems = s.TotalProblems
	ws.SolvedProblems = s.SolvedProblems
	ws.CompletionRate = s.CompletionRate
	if err := validate.Struct(ws); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	return nil
}
