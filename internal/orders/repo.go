package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/samia-tarot/samia-tarot-backend/pkg/db/models"
	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
	"github.com/samia-tarot/samia-tarot-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListVisibleOrders(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Order{})

	switch {
	case actor.Role.IsStaff():
		// staff see every order
	case actor.Role == enums.ActorRoleReader:
		query = query.Where("assigned_reader_id = ?", actor.ID)
	default:
		query = query.Where("client_id = ?", actor.ID)
	}

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ServiceCode != nil {
		query = query.Where("service_code = ?", *filters.ServiceCode)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		// Priority-first keyset ordering needs the pivot row's flag.
		var pivot models.Order
		if err := r.db.WithContext(ctx).Select("is_priority").Where("id = ?", cursor.ID).First(&pivot).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return &OrderList{Orders: []OrderSummary{}}, nil
			}
			return nil, err
		}
		query = query.Where(
			"(is_priority < ?) OR (is_priority = ? AND (created_at < ? OR (created_at = ? AND id < ?)))",
			pivot.IsPriority, pivot.IsPriority, cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	err = query.
		Order("is_priority DESC").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	summaries := make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, OrderSummary{
			ID:               row.ID,
			ServiceCode:      row.ServiceCode,
			Status:           row.Status,
			ClientID:         row.ClientID,
			AssignedReaderID: row.AssignedReaderID,
			IsPriority:       row.IsPriority,
			CreatedAt:        row.CreatedAt,
			UpdatedAt:        row.UpdatedAt,
		})
	}

	return &OrderList{
		Orders:     summaries,
		NextCursor: nextCursor,
	}, nil
}
