package domain

import "fmt"

// Response messages returned by the registration pipeline. These are fixed
// product copy; tests assert on them verbatim.
const (
	MsgWelcome         = "Welcome to the club! 🎉"
	MsgAlreadyTried    = "You've already tried that password 😪"
	MsgProvideBoth     = "Please provide a username and a password"
	MsgTooManyDigits   = "Passwords can't contain 11 or more digits in a row"
	MsgUsernameTooLong = "Usernames can't be longer than 50 characters"
	MsgInternal        = "Something went wrong, please try again"
)

// CelebrationPool holds the messages for users adding a second or later
// distinct password. One is picked at random per successful registration.
var CelebrationPool = []string{
	"Another one bites the dust! 🔥",
	"You're on a roll! 🚀",
	"A true collector! 🏆",
	"The streak continues! ⚡",
	"Nothing can stop you now! 💪",
}

// MsgTakenBy names the owner of an already-registered password.
func MsgTakenBy(username string) string {
	return fmt.Sprintf("This password is already taken by %q 😭", username)
}
