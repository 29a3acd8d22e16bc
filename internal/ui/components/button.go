package components

import "github.com/abhisek/vidquiz/internal/ui/theme"

// Button renders a call to action bound to the Enter key.
func Button(label string) string {
	return theme.ButtonActive.Render("⏎ " + label)
}

// QuietButton is a secondary action shown next to a Button.
func QuietButton(keyName, label string) string {
	return theme.ButtonInactive.Render(keyName + " " + label)
}
