package mem

// An AddressConverter translates between bus addresses and the internal
// addresses of a memory array.
type AddressConverter interface {
	ConvertExternalToInternal(external uint64) uint64
	ConvertInternalToExternal(internal uint64) uint64
}

// An OffsetConverter removes a fixed region base from bus addresses.
type OffsetConverter struct {
	Offset uint64
}

// ConvertExternalToInternal subtracts the offset from a bus address.
func (c OffsetConverter) ConvertExternalToInternal(external uint64) uint64 {
	return external - c.Offset
}

// ConvertInternalToExternal adds the offset back to an array address.
func (c OffsetConverter) ConvertInternalToExternal(internal uint64) uint64 {
	return internal + c.Offset
}
