package feed

// Порядок корзин при seq % 4 == 0; дальше сдвигается на seq.
var baseOrder = []Bucket{BucketFresh, BucketLow, BucketMid, BucketPopular}

// bucketOrder возвращает порядок предпочтения корзин для шага seq.
func bucketOrder(seq int64) []Bucket {
	n := int64(len(baseOrder))
	shift := int(((seq % n) + n) % n)
	out := make([]Bucket, 0, len(baseOrder))
	out = append(out, baseOrder[shift:]...)
	out = append(out, baseOrder[:shift]...)
	return out
}

// isRestTurn — каждый n-й запрос отдаёт «передышку». n <= 0 отключает.
func isRestTurn(seq int64, n int) bool {
	return n > 0 && seq > 0 && seq%int64(n) == 0
}

// bucketOf определяет корзину по числу оценок.
func bucketOf(votes, low, popular int) Bucket {
	switch {
	case votes <= 0:
		return BucketFresh
	case votes <= low:
		return BucketLow
	case votes < popular:
		return BucketMid
	default:
		return BucketPopular
	}
}
