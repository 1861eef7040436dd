package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/entity"
	"github.com/joseph-ayodele/ashwini-cargo/internal/lrparse"
)

// fixed-width UTC timestamps so TEXT ordering matches time ordering
const tsLayout = "2006-01-02T15:04:05.000000Z"

type ScanRepository interface {
	Create(ctx context.Context, filename, contentHash string, sizeBytes int64) (*entity.Scan, error)
	Start(ctx context.Context, id uuid.UUID) error
	FinishParsed(ctx context.Context, id uuid.UUID, method string, rec lrparse.Record) error
	FinishFailed(ctx context.Context, id uuid.UUID, message string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Scan, error)
	List(ctx context.Context, from, to time.Time) ([]entity.Scan, error)
	ApplyCorrection(ctx context.Context, id uuid.UUID, rec lrparse.Record) (*entity.Scan, error)
	FindByContentHash(ctx context.Context, contentHash string) (*entity.Scan, error)
}

type scanRepo struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func NewScanRepository(db *sql.DB, log *slog.Logger) ScanRepository {
	if log == nil {
		log = slog.Default()
	}
	return &scanRepo{db: db, log: log, now: time.Now}
}

func (r *scanRepo) stamp() string {
	return r.now().UTC().Format(tsLayout)
}

func (r *scanRepo) Create(ctx context.Context, filename, contentHash string, sizeBytes int64) (*entity.Scan, error) {
	id := uuid.New()
	ts := r.stamp()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO lr_scans (id, filename, content_hash, size_bytes, status, payment_status, payment_mode, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, id.String(), filename, contentHash, sizeBytes, string(constants.ScanStatusQueued),
		string(constants.PaymentUnknown), string(constants.PaymentUnknown), ts, ts)
	if err != nil {
		r.log.Error("lr_scan create failed", "filename", filename, "err", err)
		return nil, err
	}
	r.log.Info("lr_scan queued", "scan_id", id, "filename", filename, "size_bytes", sizeBytes)
	return r.Get(ctx, id)
}

func (r *scanRepo) Start(ctx context.Context, id uuid.UUID) error {
	ts := r.stamp()
	res, err := r.db.ExecContext(ctx, `
UPDATE lr_scans SET status = ?, started_at = ?, updated_at = ? WHERE id = ?
`, string(constants.ScanStatusRunning), ts, ts, id.String())
	if err != nil {
		r.log.Error("lr_scan start failed", "scan_id", id, "err", err)
		return err
	}
	return expectOne(res, id)
}

func (r *scanRepo) FinishParsed(ctx context.Context, id uuid.UUID, method string, rec lrparse.Record) error {
	ts := r.stamp()
	res, err := r.db.ExecContext(ctx, `
UPDATE lr_scans SET
  status = ?, method = ?,
  lr_number = ?, vehicle_no = ?, payment_status = ?, payment_mode = ?,
  total_freight = ?, consignee_name = ?, material = ?, raw_text = ?,
  needs_review = ?, error_message = NULL, finished_at = ?, updated_at = ?
WHERE id = ?
`, string(constants.ScanStatusParsed), method,
		rec.LRNumber, rec.VehicleNo, string(rec.PaymentStatus), string(rec.PaymentMode),
		rec.TotalFreight, rec.ConsigneeName, rec.Material, rec.RawText,
		rec.NeedsReview(), ts, ts, id.String())
	if err != nil {
		r.log.Error("lr_scan finish(PARSED) failed", "scan_id", id, "err", err)
		return err
	}
	r.log.Info("lr_scan finished (PARSED)", "scan_id", id, "method", method, "needs_review", rec.NeedsReview())
	return expectOne(res, id)
}

func (r *scanRepo) FinishFailed(ctx context.Context, id uuid.UUID, message string) error {
	ts := r.stamp()
	res, err := r.db.ExecContext(ctx, `
UPDATE lr_scans SET status = ?, error_message = ?, needs_review = 1, finished_at = ?, updated_at = ?
WHERE id = ?
`, string(constants.ScanStatusFailed), message, ts, ts, id.String())
	if err != nil {
		r.log.Error("lr_scan finish(FAILED) failed", "scan_id", id, "err", err)
		return err
	}
	r.log.Warn("lr_scan finished (FAILED)", "scan_id", id, "error", message)
	return expectOne(res, id)
}

// ApplyCorrection stores manually confirmed fields. The recognised raw text is kept.
func (r *scanRepo) ApplyCorrection(ctx context.Context, id uuid.UUID, rec lrparse.Record) (*entity.Scan, error) {
	ts := r.stamp()
	res, err := r.db.ExecContext(ctx, `
UPDATE lr_scans SET
  status = ?,
  lr_number = ?, vehicle_no = ?, payment_status = ?, payment_mode = ?,
  total_freight = ?, consignee_name = ?, material = ?,
  needs_review = 0, updated_at = ?
WHERE id = ?
`, string(constants.ScanStatusConfirmed),
		rec.LRNumber, rec.VehicleNo, string(rec.PaymentStatus), string(rec.PaymentMode),
		rec.TotalFreight, rec.ConsigneeName, rec.Material, ts, id.String())
	if err != nil {
		r.log.Error("lr_scan correction failed", "scan_id", id, "err", err)
		return nil, err
	}
	if err := expectOne(res, id); err != nil {
		return nil, err
	}
	r.log.Info("lr_scan corrected", "scan_id", id)
	return r.Get(ctx, id)
}

const scanColumns = `id, filename, content_hash, size_bytes, status, method,
  lr_number, vehicle_no, payment_status, payment_mode, total_freight, consignee_name, material, raw_text,
  needs_review, error_message, created_at, started_at, finished_at, updated_at`

func (r *scanRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Scan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM lr_scans WHERE id = ?`, id.String())
	s, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("scan " + id.String())
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindByContentHash returns the newest scan of identical bytes that did not fail.
func (r *scanRepo) FindByContentHash(ctx context.Context, contentHash string) (*entity.Scan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM lr_scans
WHERE content_hash = ? AND status <> ?
ORDER BY created_at DESC LIMIT 1`, contentHash, string(constants.ScanStatusFailed))
	s, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("scan with hash " + contentHash)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List returns scans created in [from, to), newest first. Zero bounds are open.
func (r *scanRepo) List(ctx context.Context, from, to time.Time) ([]entity.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM lr_scans WHERE 1 = 1`
	var args []any
	if !from.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, from.UTC().Format(tsLayout))
	}
	if !to.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, to.UTC().Format(tsLayout))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.Scan, 0)
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*entity.Scan, error) {
	var (
		s                                  entity.Scan
		id, status, paymentStatus, payMode string
		method, lrNumber, vehicleNo        sql.NullString
		consignee, material, rawText       sql.NullString
		errMsg, startedAt, finishedAt      sql.NullString
		createdAt, updatedAt               string
		freight                            sql.NullFloat64
		needsReview                        bool
	)
	if err := row.Scan(
		&id, &s.Filename, &s.ContentHash, &s.SizeBytes, &status, &method,
		&lrNumber, &vehicleNo, &paymentStatus, &payMode, &freight, &consignee, &material, &rawText,
		&needsReview, &errMsg, &createdAt, &startedAt, &finishedAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	s.ID = parsed
	s.Status = constants.ScanStatus(status)
	s.Method = nullString(method)
	s.NeedsReview = needsReview
	s.ErrorMessage = nullString(errMsg)
	s.Record = lrparse.Record{
		LRNumber:      nullString(lrNumber),
		VehicleNo:     nullString(vehicleNo),
		PaymentStatus: constants.ParsePaymentStatus(paymentStatus),
		PaymentMode:   constants.ParsePaymentStatus(payMode),
		ConsigneeName: nullString(consignee),
		Material:      nullString(material),
		RawText:       rawText.String,
	}
	if freight.Valid {
		v := freight.Float64
		s.Record.TotalFreight = &v
	}
	if s.CreatedAt, err = time.Parse(tsLayout, createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = time.Parse(tsLayout, updatedAt); err != nil {
		return nil, err
	}
	s.StartedAt = nullTime(startedAt)
	s.FinishedAt = nullTime(finishedAt)
	return &s, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(tsLayout, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func expectOne(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.NotFound("scan " + id.String())
	}
	return nil
}
