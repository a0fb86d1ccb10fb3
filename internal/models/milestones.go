package models

import "time"

// Milestone описывает одну дату-веху заказа: ключ для дедупликации,
// имя колонки в таблице orders, человекочитаемая подпись и селектор.
// Оконные запросы и уведомления итерируют этот список, а не дублируют
// логику по полю на каждую дату.
type Milestone struct {
	Key    string
	Column string
	Label  string
	Time   func(*Order) *time.Time
}

// Milestones — вехи, по которым строятся события и напоминания.
// Порядок соответствует движению груза по маршруту.
var Milestones = []Milestone{
	{
		Key:    "departure",
		Column: "departure_date",
		Label:  "Отплытие из Китая",
		Time:   func(o *Order) *time.Time { return o.DepartureDate },
	},
	{
		Key:    "arrival_iran",
		Column: "arrival_iran_date",
		Label:  "Прибытие в Иран",
		Time:   func(o *Order) *time.Time { return o.ArrivalIranDate },
	},
	{
		Key:    "truck_loading",
		Column: "truck_loading_date",
		Label:  "Погрузка на грузовик",
		Time:   func(o *Order) *time.Time { return o.TruckLoadingDate },
	},
	{
		Key:    "arrival_turkmenistan",
		Column: "arrival_turkmenistan_date",
		Label:  "Прибытие в Туркменистан",
		Time:   func(o *Order) *time.Time { return o.ArrivalTurkmenistanDate },
	},
	{
		Key:    "client_receiving",
		Column: "client_receiving_date",
		Label:  "Получение клиентом",
		Time:   func(o *Order) *time.Time { return o.ClientReceivingDate },
	},
}

// MilestoneByKey возвращает веху по ключу, ok=false для неизвестного ключа.
func MilestoneByKey(key string) (Milestone, bool) {
	for _, m := range Milestones {
		if m.Key == key {
			return m, true
		}
	}
	return Milestone{}, false
}
