package domain

import "encoding/json"

type RecordKind string

const (
	KindTextHash   RecordKind = "text-hash"
	KindFileHash   RecordKind = "file-hash"
	KindSignature  RecordKind = "signature"
	KindScanBatch  RecordKind = "scan-batch"
	KindQR         RecordKind = "qr"
	KindPassword   RecordKind = "password"
	KindNote       RecordKind = "note"
	KindIDPhoto    RecordKind = "id-photo"
	KindCollage    RecordKind = "collage"
	KindConversion RecordKind = "conversion"
	KindPDF        RecordKind = "pdf"
	KindCapture    RecordKind = "capture"
)

// HistoryRecord is never mutated after creation, only deleted.
type HistoryRecord struct {
	ID        int64           `json:"id"`
	Kind      RecordKind      `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"createdAt"`
}

func (r HistoryRecord) Decode(into any) error {
	return json.Unmarshal(r.Payload, into)
}
