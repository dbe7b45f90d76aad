package export

import (
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/askdb/askdb/internal/domain"
)

// CopyToClipboard puts the tab-separated encoding of the rows on the system
// clipboard. Empty input performs no clipboard write and returns ErrNoData.
func CopyToClipboard(rows domain.RowSet) error {
	data, err := ToTSV(rows)
	if err != nil {
		return err
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	return nil
}
