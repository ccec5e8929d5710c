package domain

// Profile — только те поля профиля, которые нужны ядру. CRUD живёт в
// user-service; здесь профиль читается и обновляется лишь в части current area.
type Profile struct {
	ID            string  `db:"id"`
	DisplayName   string  `db:"display_name"`
	DeviceToken   *string `db:"device_token"`
	CurrentAreaID *string `db:"current_area_id"`
}

type Friend struct {
	ID          string  `db:"id"`
	Name        string  `db:"name"`
	DeviceToken *string `db:"device_token"`
}
