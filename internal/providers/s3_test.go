package providers

import "testing"

func TestParseS3URLBucketAndPrefix(t *testing.T) {
	bucket, key, err := parseS3URL("s3://my-bucket/models/weights/")
	if err != nil {
		t.Fatalf("parseS3URL: %v", err)
	}
	if bucket != "my-bucket" || key != "models/weights/" {
		t.Fatalf("got (%q, %q)", bucket, key)
	}
}

func TestParseS3URLBucketOnly(t *testing.T) {
	bucket, key, err := parseS3URL("s3://my-bucket")
	if err != nil {
		t.Fatalf("parseS3URL: %v", err)
	}
	if bucket != "my-bucket" || key != "" {
		t.Fatalf("got (%q, %q)", bucket, key)
	}
}

func TestParseS3URLRejectsEmptyBucket(t *testing.T) {
	if _, _, err := parseS3URL("s3:///key"); err == nil {
		t.Fatal("expected error for missing bucket")
	}
}
