package devserver

import "github.com/five82/docent/internal/museum"

// SeedExhibits is the catalogue served when no other is supplied. Positions
// sit inside one building so simulated walks stay plausible.
func SeedExhibits() []museum.Exhibit {
	return []museum.Exhibit{
		{ID: "rosetta-stone", Title: "Rosetta Stone", Subtitle: "Decree of Memphis", Category: "Egypt", Period: "196 BC", Floor: 0, Lat: 51.51918, Lng: -0.12739},
		{ID: "lewis-chessmen", Title: "Lewis Chessmen", Subtitle: "Walrus ivory gaming pieces", Category: "Medieval Europe", Period: "12th century", Floor: 2, Lat: 51.51953, Lng: -0.12681},
		{ID: "sutton-hoo-helmet", Title: "Sutton Hoo Helmet", Category: "Early Medieval Europe", Period: "7th century", Floor: 2, Lat: 51.51961, Lng: -0.12702},
		{ID: "parthenon-sculptures", Title: "Parthenon Sculptures", Subtitle: "Frieze and pediment figures", Category: "Greece", Period: "438 BC", Floor: 0, Lat: 51.51927, Lng: -0.12778},
		{ID: "hoa-hakananaia", Title: "Hoa Hakananai'a", Subtitle: "Moai from Rapa Nui", Category: "Oceania", Period: "1000-1200 AD", Floor: 0, Lat: 51.51941, Lng: -0.12721},
		{ID: "great-wave", Title: "The Great Wave", Subtitle: "Woodblock print by Hokusai", Category: "Japan", Period: "1831", Floor: 3, Lat: 51.51972, Lng: -0.12745},
		{ID: "mold-cape", Title: "Mold Gold Cape", Category: "Bronze Age Britain", Period: "1900-1600 BC", Floor: 2, Lat: 51.51948, Lng: -0.12668},
		{ID: "ur-standard", Title: "Standard of Ur", Subtitle: "War and peace panels", Category: "Middle East", Period: "2600 BC", Floor: 3, Lat: 51.51935, Lng: -0.12690},
	}
}
