// Package state tracks per-chat conversation state: the FSM step a chat is in and
// the bot messages (menu, invoice) it currently displays.
package state
