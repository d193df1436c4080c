package catalog

import "topup/internal/account/models"

// Defaults is the catalog used when no CATALOG_FILE is configured.
func Defaults() []Product {
	return []Product{
		{
			Slug: "mobile-legends",
			Name: "Mobile Legends: Bang Bang",
			Fields: []models.FieldDescriptor{
				{Name: "user_id", Label: "User ID", Kind: models.NumberKind{}, Required: true},
				{Name: "zone_id", Label: "Zone ID", Kind: models.NumberKind{}, Required: true},
			},
		},
		{
			Slug: "genshin-impact",
			Name: "Genshin Impact",
			Fields: []models.FieldDescriptor{
				{Name: "user_id", Label: "UID", Kind: models.NumberKind{}, Required: true},
				{Name: "server_id", Label: "Server", Required: true, Kind: models.SelectKind{Options: []models.Option{
					{Value: "os_asia", Label: "Asia"},
					{Value: "os_usa", Label: "America"},
					{Value: "os_euro", Label: "Europe"},
					{Value: "os_cht", Label: "TW, HK, MO"},
				}}},
			},
		},
		{
			Slug: "free-fire",
			Name: "Free Fire",
			Fields: []models.FieldDescriptor{
				{Name: "user_id", Label: "Player ID", Kind: models.NumberKind{}, Required: true},
			},
		},
		{
			Slug: "valorant",
			Name: "Valorant",
			Fields: []models.FieldDescriptor{
				{Name: "riot_id", Label: "Riot ID", Kind: models.TextKind{}, Required: true},
			},
		},
	}
}
