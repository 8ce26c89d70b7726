package service

import "strconv"

func userIDString(id uint) string { return strconv.FormatUint(uint64(id), 10) }
