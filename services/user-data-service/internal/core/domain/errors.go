package domain

import "errors"

var (
	ErrUserBookNotFound = errors.New("user book not found")
	ErrSessionNotFound  = errors.New("reading session not found")
	ErrListNotFound     = errors.New("list not found")
	ErrListItemNotFound = errors.New("book not in list")
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrFriendNotFound   = errors.New("friendship not found")
	ErrUserNotFound     = errors.New("user not found")

	ErrNotOwner        = errors.New("resource belongs to another user")
	ErrNotAddressee    = errors.New("only the addressee may resolve this request")
	ErrNotRequester    = errors.New("only the requester may cancel this request")
	ErrPrivateResource = errors.New("resource is private")

	ErrDuplicateUserBook = errors.New("book already on shelf")
	ErrDuplicateListItem = errors.New("book already in list")
	ErrDuplicateList     = errors.New("list with this name already exists")
	ErrAlreadyFriends    = errors.New("users are already friends")
	ErrRequestPending    = errors.New("a friend request is already pending")
	ErrReverseRequest    = errors.New("this user already sent you a friend request")
	ErrRequestNotPending = errors.New("request is no longer pending")
	ErrSelfFriendship    = errors.New("cannot send a friend request to yourself")
	ErrDefaultListLocked = errors.New("default lists cannot be renamed or deleted")

	ErrInvalidStatus   = errors.New("invalid reading status")
	ErrInvalidMethod   = errors.New("invalid reading method")
	ErrInvalidListType = errors.New("invalid list type")
	ErrInvalidSession  = errors.New("invalid reading session")
	ErrInvalidProgress = errors.New("invalid progress update")
	ErrInvalidReorder  = errors.New("reorder must include every list item exactly once")
)
