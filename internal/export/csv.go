package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/tinynotes/internal/store"
)

var csvHeader = []string{
	"ID", "Title", "Area", "Date", "Time", "End", "Duration",
	"Order", "Completed", "Color", "Description", "Created", "Updated",
}

func ToCSV(tasks []store.Task, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	return WriteCSV(f, tasks)
}

// WriteCSV writes tasks sorted by area, date and order.
func WriteCSV(out io.Writer, tasks []store.Task) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, t := range sorted(tasks) {
		row := []string{
			t.ID,
			t.Title,
			string(t.Area),
			t.Date,
			t.Time,
			t.EndTime,
			slotDuration(t),
			strconv.Itoa(t.Order),
			strconv.FormatBool(t.Completed),
			string(t.Color),
			t.Description,
			t.CreatedAt.Local().Format(time.RFC3339),
			t.UpdatedAt.Local().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
