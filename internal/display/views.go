// Package display renders funnel prompts, result pages and favorite cards
// and decides whether a view edits an existing message or is sent anew.
package display

import (
	"fmt"
	"strings"

	"github.com/m3rciful/listingbot/core/telegram/format"
	"github.com/m3rciful/listingbot/core/telegram/keyboard"
	"github.com/m3rciful/listingbot/internal/action"
	"github.com/m3rciful/listingbot/internal/favorites"
	"github.com/m3rciful/listingbot/internal/listing"
	"github.com/m3rciful/listingbot/internal/search"
)

// Button is one inline button.
type Button struct {
	Label  string
	Action action.Payload
}

// View is a transport-neutral message.
type View struct {
	Text string
	// ImageURL, when set, makes Text the caption of a photo.
	ImageURL string
	// Markdown marks Text as MarkdownV1.
	Markdown bool
	Keyboard [][]Button
}

// WithoutImage returns a copy of v rendered as plain text.
func (v View) WithoutImage() View {
	v.ImageURL = ""
	return v
}

const (
	TextWelcome        = "🏡 Welcome! Select a location:"
	TextNoResults      = "😔 No listings found for your filters."
	TextSessionExpired = "Session expired. Use /start to begin again."
	TextInvalidAction  = "That button is no longer valid. Use /start to begin again."
	TextNoFavorites    = "⭐ You have no favorites yet. Save one from the results screen."
	TextFavoritesError = "Could not load your favorites right now. Try again later."
	TextFallback       = "Use /start to begin."

	NoticeSaved       = "Saved to favorites."
	NoticeSaveFailed  = "Could not save."
	NoticeRemoved     = "Removed from favorites."
	NoticeNotRemoved  = "Not removed."
	NoticeCardRemoved = "Removed."
	NoticeNotFound    = "Not found."
	NoticeNoListing   = "No listing selected."
)

const helpText = "🤖 *How to use*\n\n" +
	"1. /start → choose Location → Bedrooms → Budget\n" +
	"2. Browse results one-by-one with Prev / Next\n" +
	"3. Save a listing with ⭐ Save and view saved with /favorites\n\n" +
	"Use the back buttons to change previous selections."

var (
	btnFavorites  = Button{Label: "⭐ My Favorites", Action: action.Simple(action.KindFavorites)}
	btnHelp       = Button{Label: "❓ Help", Action: action.Simple(action.KindHelp)}
	btnRestart    = Button{Label: "🔄 New Search", Action: action.Simple(action.KindRestart)}
	btnStartOver  = Button{Label: "🔄 Start New Search", Action: action.Simple(action.KindRestart)}
	btnToLocation = Button{Label: "🔙 Back to Locations", Action: action.Simple(action.KindBackToLocation)}
	btnToBedrooms = Button{Label: "🔙 Back to Bedrooms", Action: action.Simple(action.KindBackToBedrooms)}
	btnToBudget   = Button{Label: "🔙 Back to Budget", Action: action.Simple(action.KindBackToBudget)}
)

// Welcome lists the locations two per row followed by the favorites and
// help rows. Locations whose payload would not fit a button are left out.
func Welcome(locations []string) View {
	btns := make([]Button, 0, len(locations))
	for _, loc := range locations {
		p := action.Location(loc)
		if !p.Fits() {
			continue
		}
		btns = append(btns, Button{Label: loc, Action: p})
	}
	rows := keyboard.Chunk(btns, 2)
	rows = append(rows, []Button{btnFavorites}, []Button{btnHelp})
	return View{Text: TextWelcome, Keyboard: rows}
}

// BedroomsPrompt asks for the bedrooms category after a location was chosen.
func BedroomsPrompt(location string, options []string) View {
	btns := make([]Button, 0, len(options))
	for _, o := range options {
		btns = append(btns, Button{Label: o, Action: action.Bedrooms(o)})
	}
	rows := append(keyboard.Chunk(btns, 3), []Button{btnToLocation})
	return View{
		Text:     "📍 Location: " + format.Bold(location) + "\n\n🛏️ Select number of bedrooms:",
		Markdown: true,
		Keyboard: rows,
	}
}

// BudgetPrompt asks for the price range after the bedrooms were chosen.
func BudgetPrompt(bedrooms string, budgets []search.Budget) View {
	btns := make([]Button, 0, len(budgets))
	for _, b := range budgets {
		btns = append(btns, Button{Label: b.Label, Action: action.Budget(b.Range)})
	}
	rows := append(keyboard.Chunk(btns, 2), []Button{btnToBedrooms})
	return View{
		Text:     "🛏 Bedrooms: " + format.Bold(bedrooms) + "\n\n💰 Choose budget:",
		Markdown: true,
		Keyboard: rows,
	}
}

// NoResults is shown instead of a result page when the filter matched nothing.
func NoResults() View {
	return View{
		Text:     TextNoResults,
		Keyboard: [][]Button{{btnStartOver}, {btnToBedrooms}},
	}
}

// ResultPage renders the listing at index page of total. The favorite
// button reflects state, which callers read fresh from the store.
func ResultPage(l listing.Listing, page, total int, state favorites.State) View {
	var b strings.Builder
	fmt.Fprintf(&b, "📄 Result %d of %d\n\n", page+1, total)
	fmt.Fprintf(&b, "🏡 %s\n", l.Title)
	fmt.Fprintf(&b, "📍 %s\n", l.Location)
	fmt.Fprintf(&b, "🛏 %s\n", l.Bedrooms)
	fmt.Fprintf(&b, "💰 KES %s\n", format.Thousands(l.Price))
	fmt.Fprintf(&b, "🔗 %s", l.URL)

	var rows [][]Button
	var nav []Button
	if search.HasPrev(page, total) {
		nav = append(nav, Button{Label: "⬅ Prev", Action: action.Page(search.Prev)})
	}
	if search.HasNext(page, total) {
		nav = append(nav, Button{Label: "Next ➡", Action: action.Page(search.Next)})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	fav := Button{Label: "⭐ Save", Action: action.Simple(action.KindFavToggle)}
	if state == favorites.Saved {
		fav.Label = "❌ Remove"
	}
	rows = append(rows, []Button{fav}, []Button{btnToBudget, btnRestart})

	return View{Text: b.String(), ImageURL: strings.TrimSpace(l.ImageURL), Keyboard: rows}
}

// FavoriteCard renders one saved listing with its own remove button.
func FavoriteCard(r favorites.Record) View {
	text := fmt.Sprintf("🏠 %s\n📍 %s\n🛏 %s\n💰 %s\n🔗 %s",
		r.Title, r.Location, r.Bedrooms, r.Price, r.URL)
	return View{
		Text:     text,
		ImageURL: strings.TrimSpace(r.ImageURL),
		Keyboard: [][]Button{
			{{Label: "❌ Remove", Action: action.FavRemove(r.Hash())}},
			{btnStartOver},
		},
	}
}

// Help is the usage text shown by /help and the help button.
func Help() View {
	return View{Text: helpText, Markdown: true}
}

// Text is a plain message without buttons.
func Text(s string) View {
	return View{Text: s}
}
