package postgres

import (
	"context"
	"fmt"

	"agri-market-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AuditRepo implements ports.AuditRepository. Audit rows are write-once and
// created in the same transaction as the mutation they describe.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

const auditColumns = `id, wallet_id, user_id, operation, amount, balance_before,
		balance_after, version_before, version_after, ip_address, created_at`

// Create inserts an audit log entry within the caller's transaction.
func (r *AuditRepo) Create(ctx context.Context, tx pgx.Tx, l *domain.WalletAuditLog) error {
	query := `INSERT INTO wallet_audit_logs (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		l.ID, l.WalletID, l.UserID, l.Operation, l.Amount, l.BalanceBefore,
		l.BalanceAfter, l.VersionBefore, l.VersionAfter, l.IPAddress, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListByWallet returns the wallet's most recent audit entries, newest first.
func (r *AuditRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletAuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM wallet_audit_logs
		WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.WalletAuditLog
	for rows.Next() {
		var l domain.WalletAuditLog
		if err := rows.Scan(
			&l.ID, &l.WalletID, &l.UserID, &l.Operation, &l.Amount, &l.BalanceBefore,
			&l.BalanceAfter, &l.VersionBefore, &l.VersionAfter, &l.IPAddress, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
