package models

import "time"

// OrderStatus — закрытый набор статусов заказа. Значения совпадают с тем,
// что присылает десктопное приложение.
type OrderStatus string

const (
	StatusNew             OrderStatus = "New"
	StatusInProgressCHN   OrderStatus = "In Progress CHN"
	StatusInTransitCHNIR  OrderStatus = "In Transit CHN-IR"
	StatusInProgressIR    OrderStatus = "In Progress IR"
	StatusInTransitIRTKM  OrderStatus = "In Transit IR-TKM"
	StatusCompleted       OrderStatus = "Completed"
	StatusCancelled       OrderStatus = "Cancelled"
)

// ActiveStatuses — всё, что ещё в работе. Единственное место, где этот
// набор перечислен; фильтры по "активным" используют его, а не свой список.
var ActiveStatuses = []OrderStatus{
	StatusNew,
	StatusInProgressCHN,
	StatusInTransitCHNIR,
	StatusInProgressIR,
	StatusInTransitIRTKM,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgressCHN, StatusInTransitCHNIR,
		StatusInProgressIR, StatusInTransitIRTKM, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

type Order struct {
	ID          uint64      `json:"id"`
	OrderNumber string      `json:"order_number"`
	ClientName  string      `json:"client_name"`

	ContainerCount          int    `json:"container_count"`
	GoodsType               string `json:"goods_type,omitempty"`
	Route                   string `json:"route,omitempty"`
	TransitPort             string `json:"transit_port,omitempty"`
	DocumentNumber          string `json:"document_number,omitempty"`
	ChineseTransportCompany string `json:"chinese_transport_company,omitempty"`
	IranianTransportCompany string `json:"iranian_transport_company,omitempty"`

	Status      OrderStatus `json:"status"`
	StatusColor string      `json:"status_color,omitempty"`

	CreationDate           *time.Time `json:"creation_date,omitempty"`
	LoadingDate            *time.Time `json:"loading_date,omitempty"`
	DepartureDate          *time.Time `json:"departure_date,omitempty"`
	ArrivalIranDate        *time.Time `json:"arrival_iran_date,omitempty"`
	TruckLoadingDate       *time.Time `json:"truck_loading_date,omitempty"`
	ArrivalTurkmenistanDate *time.Time `json:"arrival_turkmenistan_date,omitempty"`
	ClientReceivingDate    *time.Time `json:"client_receiving_date,omitempty"`
	ArrivalNoticeDate      *time.Time `json:"arrival_notice_date,omitempty"`
	TKMDate                *time.Time `json:"tkm_date,omitempty"`
	ETADate                *time.Time `json:"eta_date,omitempty"`

	HasLoadingPhoto bool `json:"has_loading_photo"`
	HasLocalCharges bool `json:"has_local_charges"`
	HasTex          bool `json:"has_tex"`

	Notes          string `json:"notes,omitempty"`
	AdditionalInfo string `json:"additional_info,omitempty"`

	// Производные суммы по контейнерам заказа; заполняются запросом,
	// в таблице orders не хранятся.
	TotalWeight float64 `json:"total_weight"`
	TotalVolume float64 `json:"total_volume"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	SyncTimestamp *time.Time `json:"sync_timestamp,omitempty"`
}

type Container struct {
	ID              uint64  `json:"id"`
	OrderID         uint64  `json:"order_id"`
	ContainerNumber string  `json:"container_number"`
	ContainerType   string  `json:"container_type"`
	Weight          float64 `json:"weight"`
	Volume          float64 `json:"volume"`

	LoadingDate            *time.Time `json:"loading_date,omitempty"`
	DepartureDate          *time.Time `json:"departure_date,omitempty"`
	ArrivalIranDate        *time.Time `json:"arrival_iran_date,omitempty"`
	TruckLoadingDate       *time.Time `json:"truck_loading_date,omitempty"`
	ArrivalTurkmenistanDate *time.Time `json:"arrival_turkmenistan_date,omitempty"`
	ClientReceivingDate    *time.Time `json:"client_receiving_date,omitempty"`

	DriverFirstName        string `json:"driver_first_name,omitempty"`
	DriverLastName         string `json:"driver_last_name,omitempty"`
	DriverCompany          string `json:"driver_company,omitempty"`
	TruckNumber            string `json:"truck_number,omitempty"`
	DriverIranPhone        string `json:"driver_iran_phone,omitempty"`
	DriverTurkmenistanPhone string `json:"driver_turkmenistan_phone,omitempty"`
}

type Task struct {
	ID          uint64     `json:"id"`
	OrderID     uint64     `json:"order_id"`
	Description string     `json:"description"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedDate time.Time  `json:"created_date"`
}

// OrderSyncInput — payload синхронизации с десктопа. Указатели отличают
// "поле не прислали" от "прислали пустое": merge-patch, а не replace.
type OrderSyncInput struct {
	OrderNumber string  `json:"order_number" validate:"required,min=3"`
	ClientName  *string `json:"client_name,omitempty"`

	ContainerCount          *int    `json:"container_count,omitempty"`
	GoodsType               *string `json:"goods_type,omitempty"`
	Route                   *string `json:"route,omitempty"`
	TransitPort             *string `json:"transit_port,omitempty"`
	DocumentNumber          *string `json:"document_number,omitempty"`
	ChineseTransportCompany *string `json:"chinese_transport_company,omitempty"`
	IranianTransportCompany *string `json:"iranian_transport_company,omitempty"`

	Status      *OrderStatus `json:"status,omitempty"`
	StatusColor *string      `json:"status_color,omitempty"`

	CreationDate           *time.Time `json:"creation_date,omitempty"`
	LoadingDate            *time.Time `json:"loading_date,omitempty"`
	DepartureDate          *time.Time `json:"departure_date,omitempty"`
	ArrivalIranDate        *time.Time `json:"arrival_iran_date,omitempty"`
	TruckLoadingDate       *time.Time `json:"truck_loading_date,omitempty"`
	ArrivalTurkmenistanDate *time.Time `json:"arrival_turkmenistan_date,omitempty"`
	ClientReceivingDate    *time.Time `json:"client_receiving_date,omitempty"`
	ArrivalNoticeDate      *time.Time `json:"arrival_notice_date,omitempty"`
	TKMDate                *time.Time `json:"tkm_date,omitempty"`
	ETADate                *time.Time `json:"eta_date,omitempty"`

	HasLoadingPhoto *bool `json:"has_loading_photo,omitempty"`
	HasLocalCharges *bool `json:"has_local_charges,omitempty"`
	HasTex          *bool `json:"has_tex,omitempty"`

	Notes          *string `json:"notes,omitempty"`
	AdditionalInfo *string `json:"additional_info,omitempty"`

	SyncType      *string    `json:"sync_type,omitempty"`
	SyncTimestamp *time.Time `json:"sync_timestamp,omitempty"`

	// Если массивы присланы — контейнеры/задачи заказа заменяются целиком
	// в той же транзакции. nil оставляет существующие строки как есть.
	Containers []ContainerSyncInput `json:"containers,omitempty"`
	Tasks      []TaskSyncInput      `json:"tasks,omitempty"`
}

type ContainerSyncInput struct {
	ContainerNumber string  `json:"container_number"`
	ContainerType   string  `json:"container_type,omitempty"`
	Weight          float64 `json:"weight,omitempty"`
	Volume          float64 `json:"volume,omitempty"`

	LoadingDate            *time.Time `json:"loading_date,omitempty"`
	DepartureDate          *time.Time `json:"departure_date,omitempty"`
	ArrivalIranDate        *time.Time `json:"arrival_iran_date,omitempty"`
	TruckLoadingDate       *time.Time `json:"truck_loading_date,omitempty"`
	ArrivalTurkmenistanDate *time.Time `json:"arrival_turkmenistan_date,omitempty"`
	ClientReceivingDate    *time.Time `json:"client_receiving_date,omitempty"`

	DriverFirstName        string `json:"driver_first_name,omitempty"`
	DriverLastName         string `json:"driver_last_name,omitempty"`
	DriverCompany          string `json:"driver_company,omitempty"`
	TruckNumber            string `json:"truck_number,omitempty"`
	DriverIranPhone        string `json:"driver_iran_phone,omitempty"`
	DriverTurkmenistanPhone string `json:"driver_turkmenistan_phone,omitempty"`
}

type TaskSyncInput struct {
	Description string     `json:"description"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// UpcomingEvent — одна строка "unpivot" по датам-вехам заказа.
type UpcomingEvent struct {
	OrderNumber string    `json:"order_number"`
	EventKey    string    `json:"event_key"`
	EventType   string    `json:"event_type"`
	EventDate   time.Time `json:"event_date"`
}

type Statistics struct {
	TotalOrders     int     `json:"total_orders"`
	CompletedOrders int     `json:"completed_orders"`
	ActiveOrders    int     `json:"active_orders"`
	TotalContainers int     `json:"total_containers"`
	TotalWeight     float64 `json:"total_weight"`
	TotalVolume     float64 `json:"total_volume"`
	PeriodDays      int     `json:"period_days"`
}
