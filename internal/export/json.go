package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/tinynotes/internal/store"
)

type jsonExport struct {
	ExportedAt string     `json:"exported_at"`
	Count      int        `json:"count"`
	Tasks      []jsonTask `json:"tasks"`
}

type jsonTask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Area        string `json:"area"`
	Date        string `json:"date,omitempty"`
	Time        string `json:"time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Order       int    `json:"order"`
	Completed   bool   `json:"completed"`
	Color       string `json:"color,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func ToJSON(tasks []store.Task, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	defer f.Close()

	return WriteJSON(f, tasks)
}

func WriteJSON(w io.Writer, tasks []store.Task) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(tasks),
	}

	for _, t := range sorted(tasks) {
		export.Tasks = append(export.Tasks, jsonTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Area:        string(t.Area),
			Date:        t.Date,
			Time:        t.Time,
			EndTime:     t.EndTime,
			Duration:    slotDuration(t),
			Order:       t.Order,
			Completed:   t.Completed,
			Color:       string(t.Color),
			CreatedAt:   t.CreatedAt.Local().Format(time.RFC3339),
			UpdatedAt:   t.UpdatedAt.Local().Format(time.RFC3339),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
