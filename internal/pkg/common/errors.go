package common

import "errors"

var ErrBucketNotFound = errors.New("bucket doesn't exist")
