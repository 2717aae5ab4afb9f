package port

import "context"

// ReportStore persists generated review artifacts such as workbook exports
type ReportStore interface {
	// Save writes content under name and returns where it was stored
	Save(ctx context.Context, name string, content []byte) (string, error)
	Read(ctx context.Context, name string) ([]byte, error)
}
