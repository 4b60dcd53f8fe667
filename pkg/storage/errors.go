package storage

type storageError string

const ErrNotFound = storageError("not found")

// ErrInsufficientCredit is returned by ClientStore.DecrementCredit when
// the debit would take the balance below zero.
const ErrInsufficientCredit = storageError("insufficient credit")

func (e storageError) Error() string {
	return string(e)
}
