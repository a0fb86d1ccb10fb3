package pgcargo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/margiana/cargotrack/internal/models"
)

// Выборка заказа вместе с производными суммами по его контейнерам.
const orderSelect = `
SELECT
  o.id, o.order_number, o.client_name, o.container_count,
  o.goods_type, o.route, o.transit_port, o.document_number,
  o.chinese_transport_company, o.iranian_transport_company,
  o.status, o.status_color,
  o.creation_date, o.loading_date, o.departure_date, o.arrival_iran_date,
  o.truck_loading_date, o.arrival_turkmenistan_date, o.client_receiving_date,
  o.arrival_notice_date, o.tkm_date, o.eta_date,
  o.has_loading_photo, o.has_local_charges, o.has_tex,
  o.notes, o.additional_info,
  COALESCE(c.total_weight, 0), COALESCE(c.total_volume, 0),
  o.created_at, o.updated_at, o.sync_timestamp
FROM orders o
LEFT JOIN (
  SELECT order_id, SUM(weight) AS total_weight, SUM(volume) AS total_volume
  FROM containers GROUP BY order_id
) c ON c.order_id = o.id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	if err := row.Scan(
		&o.ID, &o.OrderNumber, &o.ClientName, &o.ContainerCount,
		&o.GoodsType, &o.Route, &o.TransitPort, &o.DocumentNumber,
		&o.ChineseTransportCompany, &o.IranianTransportCompany,
		&o.Status, &o.StatusColor,
		&o.CreationDate, &o.LoadingDate, &o.DepartureDate, &o.ArrivalIranDate,
		&o.TruckLoadingDate, &o.ArrivalTurkmenistanDate, &o.ClientReceivingDate,
		&o.ArrivalNoticeDate, &o.TKMDate, &o.ETADate,
		&o.HasLoadingPhoto, &o.HasLocalCharges, &o.HasTex,
		&o.Notes, &o.AdditionalInfo,
		&o.TotalWeight, &o.TotalVolume,
		&o.CreatedAt, &o.UpdatedAt, &o.SyncTimestamp,
	); err != nil {
		return nil, errors.Wrap(err, "scan order")
	}
	return &o, nil
}

func (s *Storage) queryOrders(ctx context.Context, q string, args ...any) ([]*models.Order, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	defer rows.Close()

	var out []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

type setArg struct {
	col string
	val any
}

// syncAssignments перечисляет присланные (non-nil) поля payload'а.
// Один список для create и update — merge-patch в обоих случаях.
func syncAssignments(in models.OrderSyncInput) []setArg {
	var sets []setArg
	add := func(col string, val any) { sets = append(sets, setArg{col: col, val: val}) }

	if in.ClientName != nil {
		add("client_name", *in.ClientName)
	}
	if in.ContainerCount != nil {
		add("container_count", *in.ContainerCount)
	}
	if in.GoodsType != nil {
		add("goods_type", *in.GoodsType)
	}
	if in.Route != nil {
		add("route", *in.Route)
	}
	if in.TransitPort != nil {
		add("transit_port", *in.TransitPort)
	}
	if in.DocumentNumber != nil {
		add("document_number", *in.DocumentNumber)
	}
	if in.ChineseTransportCompany != nil {
		add("chinese_transport_company", *in.ChineseTransportCompany)
	}
	if in.IranianTransportCompany != nil {
		add("iranian_transport_company", *in.IranianTransportCompany)
	}
	if in.Status != nil {
		add("status", *in.Status)
	}
	if in.StatusColor != nil {
		add("status_color", *in.StatusColor)
	}
	if in.CreationDate != nil {
		add("creation_date", in.CreationDate.UTC())
	}
	if in.LoadingDate != nil {
		add("loading_date", in.LoadingDate.UTC())
	}
	if in.DepartureDate != nil {
		add("departure_date", in.DepartureDate.UTC())
	}
	if in.ArrivalIranDate != nil {
		add("arrival_iran_date", in.ArrivalIranDate.UTC())
	}
	if in.TruckLoadingDate != nil {
		add("truck_loading_date", in.TruckLoadingDate.UTC())
	}
	if in.ArrivalTurkmenistanDate != nil {
		add("arrival_turkmenistan_date", in.ArrivalTurkmenistanDate.UTC())
	}
	if in.ClientReceivingDate != nil {
		add("client_receiving_date", in.ClientReceivingDate.UTC())
	}
	if in.ArrivalNoticeDate != nil {
		add("arrival_notice_date", in.ArrivalNoticeDate.UTC())
	}
	if in.TKMDate != nil {
		add("tkm_date", in.TKMDate.UTC())
	}
	if in.ETADate != nil {
		add("eta_date", in.ETADate.UTC())
	}
	if in.HasLoadingPhoto != nil {
		add("has_loading_photo", *in.HasLoadingPhoto)
	}
	if in.HasLocalCharges != nil {
		add("has_local_charges", *in.HasLocalCharges)
	}
	if in.HasTex != nil {
		add("has_tex", *in.HasTex)
	}
	if in.Notes != nil {
		add("notes", *in.Notes)
	}
	if in.AdditionalInfo != nil {
		add("additional_info", *in.AdditionalInfo)
	}
	if in.SyncTimestamp != nil {
		add("sync_timestamp", in.SyncTimestamp.UTC())
	}
	return sets
}

type UpsertResult struct {
	OrderID uint64
	Created bool
}

// UpsertOrder создаёт или дополняет заказ по order_number в одной
// транзакции. Отсутствующие в payload поля не трогаются.
func (s *Storage) UpsertOrder(ctx context.Context, in models.OrderSyncInput) (UpsertResult, error) {
	if in.OrderNumber == "" {
		return UpsertResult{}, errors.New("order_number is required")
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return UpsertResult{}, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id uint64
	created := false
	err = tx.QueryRow(ctx, `SELECT id FROM orders WHERE order_number = $1 FOR UPDATE`, in.OrderNumber).Scan(&id)
	switch {
	case err == pgx.ErrNoRows:
		created = true
		err = tx.QueryRow(ctx, `
INSERT INTO orders (order_number, client_name, creation_date, created_at, updated_at)
VALUES ($1, '', $2, $2, $2)
RETURNING id
`, in.OrderNumber, now).Scan(&id)
		if err != nil {
			return UpsertResult{}, errors.Wrap(err, "insert order")
		}
	case err != nil:
		return UpsertResult{}, errors.Wrap(err, "lookup order")
	}

	sets := syncAssignments(in)
	if len(sets) > 0 {
		cols := make([]string, 0, len(sets))
		args := make([]any, 0, len(sets)+2)
		args = append(args, id, now)
		for _, sa := range sets {
			args = append(args, sa.val)
			cols = append(cols, fmt.Sprintf("%s = $%d", sa.col, len(args)))
		}
		q := "UPDATE orders SET updated_at = $2, " + strings.Join(cols, ", ") + " WHERE id = $1"
		if _, err := tx.Exec(ctx, q, args...); err != nil {
			return UpsertResult{}, errors.Wrap(err, "update order")
		}
	} else if !created {
		if _, err := tx.Exec(ctx, `UPDATE orders SET updated_at = $2 WHERE id = $1`, id, now); err != nil {
			return UpsertResult{}, errors.Wrap(err, "touch order")
		}
	}

	if in.Containers != nil {
		if err := replaceContainers(ctx, tx, id, in.Containers); err != nil {
			return UpsertResult{}, err
		}
	}
	if in.Tasks != nil {
		if err := replaceTasks(ctx, tx, id, now, in.Tasks); err != nil {
			return UpsertResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return UpsertResult{}, errors.Wrap(err, "commit tx")
	}
	return UpsertResult{OrderID: id, Created: created}, nil
}

func replaceContainers(ctx context.Context, tx pgx.Tx, orderID uint64, items []models.ContainerSyncInput) error {
	if _, err := tx.Exec(ctx, `DELETE FROM containers WHERE order_id = $1`, orderID); err != nil {
		return errors.Wrap(err, "delete containers")
	}
	for _, c := range items {
		typ := c.ContainerType
		if typ == "" {
			typ = "20ft Standard"
		}
		_, err := tx.Exec(ctx, `
INSERT INTO containers (
  order_id, container_number, container_type, weight, volume,
  loading_date, departure_date, arrival_iran_date, truck_loading_date,
  arrival_turkmenistan_date, client_receiving_date,
  driver_first_name, driver_last_name, driver_company, truck_number,
  driver_iran_phone, driver_turkmenistan_phone
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
`, orderID, c.ContainerNumber, typ, c.Weight, c.Volume,
			c.LoadingDate, c.DepartureDate, c.ArrivalIranDate, c.TruckLoadingDate,
			c.ArrivalTurkmenistanDate, c.ClientReceivingDate,
			c.DriverFirstName, c.DriverLastName, c.DriverCompany, c.TruckNumber,
			c.DriverIranPhone, c.DriverTurkmenistanPhone)
		if err != nil {
			return errors.Wrap(err, "insert container")
		}
	}
	return nil
}

func replaceTasks(ctx context.Context, tx pgx.Tx, orderID uint64, now time.Time, items []models.TaskSyncInput) error {
	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE order_id = $1`, orderID); err != nil {
		return errors.Wrap(err, "delete tasks")
	}
	for _, t := range items {
		status := t.Status
		if status == "" {
			status = "ToDo"
		}
		priority := t.Priority
		if priority == "" {
			priority = "Medium"
		}
		_, err := tx.Exec(ctx, `
INSERT INTO tasks (order_id, description, assigned_to, status, priority, due_date, created_date)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, orderID, t.Description, t.AssignedTo, status, priority, t.DueDate, now)
		if err != nil {
			return errors.Wrap(err, "insert task")
		}
	}
	return nil
}

func (s *Storage) GetOrderByID(ctx context.Context, id uint64) (*models.Order, error) {
	row := s.db.QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id)
	o, err := scanOrder(row)
	if errors.Cause(err) == pgx.ErrNoRows {
		return nil, nil
	}
	return o, err
}

func (s *Storage) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	row := s.db.QueryRow(ctx, orderSelect+` WHERE o.order_number = $1`, orderNumber)
	o, err := scanOrder(row)
	if errors.Cause(err) == pgx.ErrNoRows {
		return nil, nil
	}
	return o, err
}

func (s *Storage) ListOrders(ctx context.Context, limit int) ([]*models.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.queryOrders(ctx, orderSelect+` ORDER BY o.created_at DESC LIMIT $1`, limit)
}

func (s *Storage) ListOrdersByStatuses(ctx context.Context, statuses []models.OrderStatus) ([]*models.Order, error) {
	ss := make([]string, 0, len(statuses))
	for _, st := range statuses {
		ss = append(ss, string(st))
	}
	return s.queryOrders(ctx, orderSelect+` WHERE o.status = ANY($1) ORDER BY o.created_at DESC`, ss)
}

func (s *Storage) ListActiveOrders(ctx context.Context) ([]*models.Order, error) {
	return s.ListOrdersByStatuses(ctx, models.ActiveStatuses)
}

func (s *Storage) ListCompletedOrders(ctx context.Context, from time.Time) ([]*models.Order, error) {
	return s.queryOrders(ctx, orderSelect+`
WHERE o.status = $1 AND o.updated_at >= $2
ORDER BY o.updated_at DESC`, string(models.StatusCompleted), from.UTC())
}

// SearchOrders — регистронезависимый поиск подстроки, OR по полям:
// совпадение в любом из них включает заказ в выдачу.
func (s *Storage) SearchOrders(ctx context.Context, text string) ([]*models.Order, error) {
	pattern := "%" + text + "%"
	return s.queryOrders(ctx, orderSelect+`
WHERE o.order_number ILIKE $1
   OR o.client_name ILIKE $1
   OR o.goods_type ILIKE $1
   OR o.route ILIKE $1
   OR o.document_number ILIKE $1
ORDER BY o.created_at DESC`, pattern)
}

func (s *Storage) ListOrdersWithoutPhoto(ctx context.Context) ([]*models.Order, error) {
	return s.queryOrders(ctx, orderSelect+`
WHERE NOT o.has_loading_photo
ORDER BY o.created_at DESC`)
}

func (s *Storage) ListOrdersWithoutDocs(ctx context.Context) ([]*models.Order, error) {
	return s.queryOrders(ctx, orderSelect+`
WHERE NOT o.has_local_charges OR NOT o.has_tex
ORDER BY o.created_at DESC`)
}

func (s *Storage) ListContainers(ctx context.Context, orderID uint64) ([]*models.Container, error) {
	rows, err := s.db.Query(ctx, `
SELECT
  id, order_id, container_number, container_type, weight, volume,
  loading_date, departure_date, arrival_iran_date, truck_loading_date,
  arrival_turkmenistan_date, client_receiving_date,
  driver_first_name, driver_last_name, driver_company, truck_number,
  driver_iran_phone, driver_turkmenistan_phone
FROM containers
WHERE order_id = $1
ORDER BY id
`, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "select containers")
	}
	defer rows.Close()

	var out []*models.Container
	for rows.Next() {
		var c models.Container
		if err := rows.Scan(
			&c.ID, &c.OrderID, &c.ContainerNumber, &c.ContainerType, &c.Weight, &c.Volume,
			&c.LoadingDate, &c.DepartureDate, &c.ArrivalIranDate, &c.TruckLoadingDate,
			&c.ArrivalTurkmenistanDate, &c.ClientReceivingDate,
			&c.DriverFirstName, &c.DriverLastName, &c.DriverCompany, &c.TruckNumber,
			&c.DriverIranPhone, &c.DriverTurkmenistanPhone,
		); err != nil {
			return nil, errors.Wrap(err, "scan container")
		}
		out = append(out, &c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) ListTasks(ctx context.Context, orderID uint64) ([]*models.Task, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, order_id, description, assigned_to, status, priority, due_date, created_date
FROM tasks
WHERE order_id = $1
ORDER BY id
`, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "select tasks")
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(
			&t.ID, &t.OrderID, &t.Description, &t.AssignedTo,
			&t.Status, &t.Priority, &t.DueDate, &t.CreatedDate,
		); err != nil {
			return nil, errors.Wrap(err, "scan task")
		}
		out = append(out, &t)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// UpcomingEvents разворачивает даты-вехи в строки (unpivot): по одной
// строке на пару (заказ, веха) с датой в [from, to]. Запрос собирается
// из models.Milestones, чтобы правило для всех вех было одним и тем же.
func (s *Storage) UpcomingEvents(ctx context.Context, from, to time.Time) ([]*models.UpcomingEvent, error) {
	parts := make([]string, 0, len(models.Milestones))
	for _, m := range models.Milestones {
		parts = append(parts, fmt.Sprintf(
			`SELECT order_number, '%s' AS event_key, %s AS event_date FROM orders WHERE %s BETWEEN $1 AND $2`,
			m.Key, m.Column, m.Column))
	}
	q := strings.Join(parts, "\nUNION ALL\n") + "\nORDER BY event_date"

	rows, err := s.db.Query(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "select upcoming events")
	}
	defer rows.Close()

	var out []*models.UpcomingEvent
	for rows.Next() {
		var e models.UpcomingEvent
		if err := rows.Scan(&e.OrderNumber, &e.EventKey, &e.EventDate); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		// Подпись события живёт в Go-коде, в SQL держим только ключ.
		if m, ok := models.MilestoneByKey(e.EventKey); ok {
			e.EventType = m.Label
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// OrdersWithEventsToday — заказы, у которых любая из вех приходится на
// сегодняшнюю дату.
func (s *Storage) OrdersWithEventsToday(ctx context.Context) ([]*models.Order, error) {
	conds := make([]string, 0, len(models.Milestones))
	for _, m := range models.Milestones {
		conds = append(conds, fmt.Sprintf("DATE(o.%s) = CURRENT_DATE", m.Column))
	}
	return s.queryOrders(ctx, orderSelect+" WHERE "+strings.Join(conds, " OR "))
}

// Statistics считает показатели за окно в days дней. Счётчик активных
// заказов намеренно не ограничен окном: это снимок текущего состояния,
// остальные показатели привязаны ко времени создания/завершения.
func (s *Storage) Statistics(ctx context.Context, days int) (*models.Statistics, error) {
	if days <= 0 {
		days = 30
	}
	from := time.Now().UTC().AddDate(0, 0, -days)

	st := &models.Statistics{PeriodDays: days}

	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE created_at >= $1`, from).Scan(&st.TotalOrders)
	if err != nil {
		return nil, errors.Wrap(err, "count total orders")
	}

	err = s.db.QueryRow(ctx, `
SELECT COUNT(*) FROM orders WHERE status = $1 AND updated_at >= $2
`, string(models.StatusCompleted), from).Scan(&st.CompletedOrders)
	if err != nil {
		return nil, errors.Wrap(err, "count completed orders")
	}

	active := make([]string, 0, len(models.ActiveStatuses))
	for _, a := range models.ActiveStatuses {
		active = append(active, string(a))
	}
	err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status = ANY($1)`, active).Scan(&st.ActiveOrders)
	if err != nil {
		return nil, errors.Wrap(err, "count active orders")
	}

	err = s.db.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(SUM(c.weight), 0), COALESCE(SUM(c.volume), 0)
FROM containers c
JOIN orders o ON c.order_id = o.id
WHERE o.created_at >= $1
`, from).Scan(&st.TotalContainers, &st.TotalWeight, &st.TotalVolume)
	if err != nil {
		return nil, errors.Wrap(err, "container stats")
	}

	return st, nil
}
