package store

import (
	"context"
	"errors"
	"time"

	"parking_manager/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ Store = (*GormStore)(nil)

// GormStore persists to a SQL database through gorm. It expects the gorm
// handle to be opened with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Slots() SlotStore       { return gormSlots{db: s.db} }
func (s *GormStore) Bookings() BookingStore { return gormBookings{db: s.db} }
func (s *GormStore) Users() UserStore       { return gormUsers{db: s.db} }
func (s *GormStore) Admins() AdminStore     { return gormAdmins{db: s.db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

type gormSlots struct{ db *gorm.DB }

func (r gormSlots) List(ctx context.Context) ([]model.Slot, error) {
	var slots []model.Slot
	err := r.db.WithContext(ctx).Order("slot_number ASC").Find(&slots).Error
	return slots, translate(err)
}

func (r gormSlots) Get(ctx context.Context, id uint) (*model.Slot, error) {
	var slot model.Slot
	if err := r.db.WithContext(ctx).First(&slot, id).Error; err != nil {
		return nil, translate(err)
	}
	return &slot, nil
}

func (r gormSlots) GetForUpdate(ctx context.Context, id uint) (*model.Slot, error) {
	var slot model.Slot
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&slot, id).Error; err != nil {
		return nil, translate(err)
	}
	return &slot, nil
}

func (r gormSlots) GetByNumber(ctx context.Context, number int) (*model.Slot, error) {
	var slot model.Slot
	if err := r.db.WithContext(ctx).Where("slot_number = ?", number).First(&slot).Error; err != nil {
		return nil, translate(err)
	}
	return &slot, nil
}

func (r gormSlots) Create(ctx context.Context, slot *model.Slot) error {
	return translate(r.db.WithContext(ctx).Create(slot).Error)
}

func (r gormSlots) UpdateState(ctx context.Context, slot *model.Slot) error {
	res := r.db.WithContext(ctx).Model(&model.Slot{}).
		Where("id = ?", slot.ID).
		Updates(map[string]any{
			"status":     slot.Status,
			"booked_by":  slot.BookedBy,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormSlots) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Slot{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormSlots) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Slot{}).Count(&n).Error
	return n, translate(err)
}

type gormBookings struct{ db *gorm.DB }

func newestFirst(q *gorm.DB) *gorm.DB {
	return q.Order("created_at DESC").Order("id DESC")
}

func applyBookingFilter(q *gorm.DB, f model.BookingFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Vehicle != "" {
		q = q.Where("vehicle_key LIKE ?", "%"+model.VehicleKey(f.Vehicle)+"%")
	}
	if f.From != nil {
		q = q.Where("booking_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("booking_date <= ?", *f.To)
	}
	return q
}

func (r gormBookings) Create(ctx context.Context, booking *model.Booking) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(booking).Error)
}

func (r gormBookings) Get(ctx context.Context, id uint) (*model.Booking, error) {
	var booking model.Booking
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Slot").
		First(&booking, id).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (r gormBookings) GetForUpdate(ctx context.Context, id uint) (*model.Booking, error) {
	var booking model.Booking
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, id).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (r gormBookings) UpdateStatus(ctx context.Context, id uint, status model.BookingStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormBookings) ListByUser(ctx context.Context, userID uint) ([]model.Booking, error) {
	var bookings []model.Booking
	err := newestFirst(r.db.WithContext(ctx)).
		Preload("Slot").
		Where("user_id = ?", userID).
		Find(&bookings).Error
	return bookings, translate(err)
}

func (r gormBookings) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	q := applyBookingFilter(newestFirst(r.db.WithContext(ctx)), f).
		Preload("User").
		Preload("Slot")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var bookings []model.Booking
	err := q.Find(&bookings).Error
	return bookings, translate(err)
}

func (r gormBookings) ListExpired(ctx context.Context, now time.Time) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND booking_date < ?", model.BookingBooked, now).
		Order("booking_date ASC").
		Find(&bookings).Error
	return bookings, translate(err)
}

func (r gormBookings) ActiveForSlot(ctx context.Context, slotID uint) (*model.Booking, error) {
	var booking model.Booking
	if err := r.db.WithContext(ctx).
		Where("slot_id = ? AND status = ?", slotID, model.BookingBooked).
		First(&booking).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (r gormBookings) CountByStatus(ctx context.Context, f model.BookingFilter) (model.BookingStats, error) {
	var rows []struct {
		Status model.BookingStatus
		Count  int64
	}
	var stats model.BookingStats
	err := applyBookingFilter(r.db.WithContext(ctx).Model(&model.Booking{}), f).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return stats, translate(err)
	}
	for _, row := range rows {
		stats.Add(row.Status, row.Count)
	}
	return stats, nil
}

type gormUsers struct{ db *gorm.DB }

func (r gormUsers) Create(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r gormUsers) Get(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r gormUsers) GetForUpdate(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r gormUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r gormUsers) Save(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error)
}

func (r gormUsers) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.User{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormUsers) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, translate(err)
}

func (r gormUsers) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error
	return n, translate(err)
}

type gormAdmins struct{ db *gorm.DB }

func (r gormAdmins) Create(ctx context.Context, admin *model.Admin) error {
	return translate(r.db.WithContext(ctx).Create(admin).Error)
}

func (r gormAdmins) Get(ctx context.Context, id uint) (*model.Admin, error) {
	var admin model.Admin
	if err := r.db.WithContext(ctx).First(&admin, id).Error; err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}

func (r gormAdmins) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&admin).Error; err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}

func (r gormAdmins) Save(ctx context.Context, admin *model.Admin) error {
	return translate(r.db.WithContext(ctx).Save(admin).Error)
}

func (r gormAdmins) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Admin{}).Count(&n).Error
	return n, translate(err)
}
