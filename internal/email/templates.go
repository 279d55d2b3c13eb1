package email

import "fmt"

// The three HTML bodies below carry over the message copy interns already
// receive; only the organisation name is parameterised.

func issuedHTML(internName, orgName string, d CertificateDetails) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px; }
    .container { max-width: 600px; margin: 0 auto; background: white; padding: 20px; border-radius: 10px; }
    .header { background: linear-gradient(135deg, #667eea, #764ba2); color: white; padding: 20px; text-align: center; border-radius: 10px 10px 0 0; }
    .content { padding: 20px; }
    .footer { text-align: center; padding: 20px; color: #666; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h2>🎓 Congratulations %[1]s!</h2>
      <p>Your Internship Certificate is Ready</p>
    </div>
    <div class="content">
      <p>Dear <strong>%[1]s</strong>,</p>
      <p>Congratulations on successfully completing your internship at <strong>%[2]s</strong></p>
      <p>Your certificate is attached to this email. You can download and share it on professional platforms like LinkedIn.</p>
      <ul>
        <li>Certificate ID: %[3]s</li>
        <li>Unique ID: %[4]s</li>
        <li>Domain: %[5]s</li>
        <li>Duration: %[6]s</li>
        <li>Period: %[7]s to %[8]s</li>
      </ul>
    </div>
    <div class="footer">
      <p>Best regards,<br>Team %[2]s</p>
    </div>
  </div>
</body>
</html>`, internName, orgName, d.CertificateNumber, d.UniqueID, d.Domain, d.Duration, d.StartMonth, d.EndMonth)
}

func rejectedHTML(internName, orgName, submissionID, reason string) string {
	reasonBlock := ""
	if reason != "" {
		reasonBlock = fmt.Sprintf(`
      <div class="reason-box">
        <h4>Feedback / Reason:</h4>
        <p>%s</p>
      </div>`, reason)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px; }
    .container { max-width: 600px; margin: 0 auto; background: white; padding: 20px; border-radius: 10px; }
    .header { background: linear-gradient(135deg, #ff6b6b, #ff8e53); color: white; padding: 20px; text-align: center; border-radius: 10px 10px 0 0; }
    .content { padding: 20px; }
    .footer { text-align: center; padding: 20px; color: #666; }
    .reason-box { background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 15px 0; }
    .action-box { background-color: #e7f3ff; border-left: 4px solid #0d6efd; padding: 15px; margin: 15px 0; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h2>📝 Certificate Request Update</h2>
      <p>Action required to proceed further</p>
    </div>
    <div class="content">
      <p>Dear <strong>%[1]s</strong>,</p>

      <p>We have reviewed your request for an internship completion certificate at <strong>%[2]s</strong></p>

      <p>After careful review, we found that your submission requires corrections. Therefore, your certificate request <strong>has not been approved at this time</strong>.</p>
      %[3]s
      <div class="action-box">
        <h4>Required Action:</h4>
        <p>Please <strong>fill out and submit the feedback form again</strong> by addressing the points mentioned above.
        Your certificate request will be reconsidered once the updated feedback is reviewed.</p>
      </div>

      <p><strong>Next Steps:</strong></p>
      <ul>
        <li>Review the feedback carefully</li>
        <li>Re-submit the feedback form with correct details</li>
        <li>Request ID: <strong>%[4]s</strong></li>
      </ul>

      <p>If you believe there has been any mistake or need clarification, please contact your supervisor or support team.</p>
    </div>
    <div class="footer">
      <p>Best regards,<br><strong>Team %[2]s</strong></p>
    </div>
  </div>
</body>
</html>`, internName, orgName, reasonBlock, submissionID)
}

func pendingHTML(internName, orgName, submissionID string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px; }
    .container { max-width: 600px; margin: 0 auto; background: white; padding: 20px; border-radius: 10px; }
    .header { background: linear-gradient(135deg, #4facfe, #00f2fe); color: white; padding: 20px; text-align: center; border-radius: 10px 10px 0 0; }
    .content { padding: 20px; }
    .footer { text-align: center; padding: 20px; color: #666; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h2>⏳ Certificate Request Under Review</h2>
      <p>Your request is being processed</p>
    </div>
    <div class="content">
      <p>Dear <strong>%[1]s</strong>,</p>
      <p>Thank you for submitting your internship certificate request to <strong>%[2]s</strong></p>

      <p>This is to inform you that your request is currently <strong>under review</strong> by our team.</p>

      <p><strong>Request Details:</strong></p>
      <ul>
        <li>Request ID: %[3]s</li>
        <li>Status: Under Review</li>
        <li>Review Timeline: 3-5 business days</li>
      </ul>

      <p>You will receive another email once the review process is complete with the final status of your request.</p>

      <p>We appreciate your patience during this process.</p>
    </div>
    <div class="footer">
      <p>Best regards,<br>Team %[2]s</p>
    </div>
  </div>
</body>
</html>`, internName, orgName, submissionID)
}
